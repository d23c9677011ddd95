package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/inventory"
	"blood-donation/internal/service/reporting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrStorageUnavailable = errors.New("report storage is not configured")

// ObjectStore is the subset of *minio.Client used for report uploads.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type Service interface {
	InventoryWorkbook(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) ([]byte, int, error)
	ExportInventory(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) (*domain.ReportExport, error)
}

type service struct {
	inventory inventory.Service
	reporting reporting.Service
	store     ObjectStore
	bucket    string
	linkTTL   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(inventorySvc inventory.Service, reportingSvc reporting.Service, store ObjectStore, bucket string, linkTTL time.Duration, logger *zap.Logger) Service {
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &service{
		inventory: inventorySvc,
		reporting: reportingSvc,
		store:     store,
		bucket:    bucket,
		linkTTL:   linkTTL,
		logger:    logger,
		now:       time.Now,
	}
}

var unitHeader = []string{"Unit ID", "Blood Type", "Status", "Donor", "Donor Email", "Expiry Date", "Days Left", "Reserved For", "Used Date"}

var summaryHeader = []string{"Blood Type", "Available", "Reserved", "Used", "Expired", "Expiring Soon", "Low Stock"}

// InventoryWorkbook renders a hospital's units, soonest expiry first, plus a
// per-type stock summary sheet. It returns the workbook and the unit count.
func (s *service) InventoryWorkbook(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) ([]byte, int, error) {
	if !actor.CanManageHospital(hospitalID) {
		return nil, 0, domain.ErrForbidden
	}

	summary, err := s.reporting.StockSummary(ctx, actor, hospitalID)
	if err != nil {
		return nil, 0, err
	}
	units, err := s.inventory.GetInventory(ctx, hospitalID, domain.UnitFilter{})
	if err != nil {
		return nil, 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const unitSheet, summarySheet = "Units", "Summary"
	if err := f.SetSheetName("Sheet1", unitSheet); err != nil {
		return nil, 0, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F4CCCC"}, Pattern: 1},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create header style: %w", err)
	}

	now := s.now()
	rows := make([][]any, 0, len(units))
	for _, u := range units {
		reserved, used := "", ""
		if u.ReservedForRequestID != nil {
			reserved = u.ReservedForRequestID.String()
		}
		if u.UsedDate != nil {
			used = u.UsedDate.Format("2006-01-02")
		}
		rows = append(rows, []any{
			u.ID.String(), string(u.BloodType), string(u.Status), u.DonorName, u.DonorEmail,
			u.ExpiryDate.Format("2006-01-02"), u.DaysUntilExpiry(now), reserved, used,
		})
	}
	if err := writeSheet(f, unitSheet, unitHeader, rows, headerStyle); err != nil {
		return nil, 0, err
	}

	rows = rows[:0]
	for _, st := range summary.Stocks {
		low := ""
		if st.BelowThreshold {
			low = "yes"
		}
		rows = append(rows, []any{string(st.BloodType), st.Available, st.Reserved, st.Used, st.Expired, st.ExpiringSoon, low})
	}
	if err := writeSheet(f, summarySheet, summaryHeader, rows, headerStyle); err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), len(units), nil
}

func (s *service) ExportInventory(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) (*domain.ReportExport, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}

	data, count, err := s.InventoryWorkbook(ctx, actor, hospitalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := fmt.Sprintf("reports/%s/inventory-%s.xlsx", hospitalID, now.UTC().Format("20060102-150405"))
	_, err = s.store.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	link, err := s.store.PresignedGetObject(ctx, s.bucket, key, s.linkTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sign report url: %w", err)
	}

	s.logger.Info("inventory report exported",
		zap.String("hospital_id", hospitalID.String()),
		zap.String("key", key),
		zap.Int("units", count),
	)
	return &domain.ReportExport{Key: key, URL: link.String(), Units: count, ExpiresAt: now.Add(s.linkTTL)}, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}
