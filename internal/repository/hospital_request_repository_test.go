package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
)

func hospitalRequestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "requesting_hospital", "patient_name", "blood_type", "units_needed",
		"urgency_level", "status", "responding_hospital", "units_offered", "expires_at", "requesting_hospital_name"})
}

func TestApplyOffer_DerivesStatusFromOfferedTotal(t *testing.T) {
	tests := []struct {
		name    string
		offered int
		units   int
		want    domain.RequestStatus
	}{
		{"first partial offer", 0, 2, domain.RequestPartiallyFulfilled},
		{"offer completes the need", 2, 2, domain.RequestFulfilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewHospitalRequestRepository(db)

			id, requester, responder := uuid.New(), uuid.New(), uuid.New()
			expires := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
			updatedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
			status := "pending"
			if tt.offered > 0 {
				status = "partially_fulfilled"
			}

			mock.ExpectBegin()
			mock.ExpectQuery(`WHERE hr.id = \$1 FOR UPDATE OF hr`).
				WithArgs(id).
				WillReturnRows(hospitalRequestRows().AddRow(id.String(), requester.String(), "Budi", "AB+", 4,
					"critical", status, nil, tt.offered, expires, "City"))
			mock.ExpectQuery(`UPDATE hospital_blood_requests\s+SET units_offered = \$2, status = \$3, responding_hospital = \$4`).
				WithArgs(id, tt.offered+tt.units, tt.want, responder).
				WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
			mock.ExpectCommit()

			req, err := repo.ApplyOffer(context.Background(), id, responder, tt.units)

			require.NoError(t, err)
			require.NotNil(t, req)
			assert.Equal(t, tt.want, req.Status)
			assert.Equal(t, tt.offered+tt.units, req.UnitsOffered)
			require.NotNil(t, req.RespondingHospital)
			assert.Equal(t, responder, *req.RespondingHospital)
			assert.Equal(t, "City", req.RequestingHospitalName)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplyOffer_RejectedWithoutUpdate(t *testing.T) {
	requester := uuid.New()

	tests := []struct {
		name      string
		status    string
		responder uuid.UUID
	}{
		{"requester responds to itself", "pending", requester},
		{"request already fulfilled", "fulfilled", uuid.New()},
		{"request expired", "expired", uuid.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewHospitalRequestRepository(db)
			id := uuid.New()

			mock.ExpectBegin()
			mock.ExpectQuery(`FOR UPDATE OF hr`).
				WithArgs(id).
				WillReturnRows(hospitalRequestRows().AddRow(id.String(), requester.String(), "Budi", "AB+", 4,
					"high", tt.status, nil, 0, time.Now().Add(time.Hour), "City"))
			mock.ExpectRollback()

			req, err := repo.ApplyOffer(context.Background(), id, tt.responder, 1)

			require.NoError(t, err)
			assert.Nil(t, req)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListOpenForResponder_MostUrgentFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHospitalRequestRepository(db)

	hospitalID := uuid.New()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM hospital_blood_requests hr`).
		WithArgs(hospitalID, now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY CASE hr.urgency_level WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'normal' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, hr.expires_at ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs(hospitalID, now, 10, 0).
		WillReturnRows(hospitalRequestRows().AddRow(uuid.New().String(), uuid.New().String(), "Budi", "O-", 2,
			"critical", "pending", nil, 0, now.Add(time.Hour), "City"))

	requests, total, err := repo.ListOpenForResponder(context.Background(), hospitalID, now, domain.PaginationParams{Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, requests, 1)
	assert.Equal(t, domain.UrgencyCritical, requests[0].UrgencyLevel)
	require.NoError(t, mock.ExpectationsWereMet())
}
