package export

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/inventory"
	"blood-donation/internal/service/reporting"
)

type fakeStore struct {
	bucket, key, contentType string
	body                     []byte
}

func (s *fakeStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	s.bucket, s.key, s.contentType, s.body = bucket, key, opts.ContentType, body
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(body))}, nil
}

func (s *fakeStore) PresignedGetObject(_ context.Context, bucket, key string, _ time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://files.test/" + bucket + "/" + key + "?X-Amz-Signature=abc")
}

func newService(t *testing.T, store ObjectStore, units ...domain.BloodUnit) Service {
	t.Helper()
	repo := repository.NewMemoryBloodUnitRepo(units...)
	inv := inventory.NewService(repo, nil, nil, nil, zap.NewNop(), nil, inventory.Options{})
	rep := reporting.NewService(repo, nil, nil, nil, nil, zap.NewNop(), reporting.Options{})
	return NewService(inv, rep, store, "blood-reports", 15*time.Minute, zap.NewNop())
}

func TestInventoryWorkbook_SortedBySoonestExpiry(t *testing.T) {
	hospitalID := uuid.New()
	later := domain.BloodUnit{ID: uuid.New(), BloodType: domain.BloodTypeAPos, DonorName: "Late", HospitalID: hospitalID,
		ExpiryDate: time.Now().Add(20 * 24 * time.Hour), Status: domain.UnitAvailable}
	sooner := domain.BloodUnit{ID: uuid.New(), BloodType: domain.BloodTypeONeg, DonorName: "Soon", HospitalID: hospitalID,
		ExpiryDate: time.Now().Add(2 * 24 * time.Hour), Status: domain.UnitAvailable}
	svc := newService(t, nil, later, sooner)

	data, count, err := svc.InventoryWorkbook(context.Background(), domain.HospitalActor(hospitalID, "general"), hospitalID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Units")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, unitHeader, rows[0])
	assert.Equal(t, "Soon", rows[1][3])
	assert.Equal(t, "O-", rows[1][1])
	assert.Equal(t, "Late", rows[2][3])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Len(t, summary, len(domain.AllBloodTypes)+1)
}

func TestInventoryWorkbook_ForeignHospitalForbidden(t *testing.T) {
	svc := newService(t, nil)
	_, _, err := svc.InventoryWorkbook(context.Background(), domain.HospitalActor(uuid.New(), "a"), uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestExportInventory_UploadsAndSigns(t *testing.T) {
	hospitalID := uuid.New()
	store := &fakeStore{}
	svc := newService(t, store)

	out, err := svc.ExportInventory(context.Background(), domain.AdminActor(uuid.New(), "root@example.com"), hospitalID)

	require.NoError(t, err)
	assert.Equal(t, "blood-reports", store.bucket)
	assert.Equal(t, xlsxContentType, store.contentType)
	assert.NotEmpty(t, store.body)
	assert.Contains(t, out.Key, "reports/"+hospitalID.String()+"/inventory-")
	assert.Contains(t, out.URL, "X-Amz-Signature")
	assert.Zero(t, out.Units)
}

func TestExportInventory_NoStorage(t *testing.T) {
	svc := newService(t, nil)
	_, err := svc.ExportInventory(context.Background(), domain.AdminActor(uuid.New(), ""), uuid.New())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
