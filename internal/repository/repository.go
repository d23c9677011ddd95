package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	User            UserRepository
	Hospital        HospitalRepository
	Admin           AdminRepository
	Donor           DonorRepository
	Donation        DonationRepository
	BloodUnit       BloodUnitRepository
	BloodRequest    BloodRequestRepository
	HospitalRequest HospitalRequestRepository
	AuditLog        AuditLogRepository
	Notification    NotificationRepository
	Session         SessionRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		Hospital:        NewHospitalRepository(db),
		Admin:           NewAdminRepository(db),
		Donor:           NewDonorRepository(db),
		Donation:        NewDonationRepository(db),
		BloodUnit:       NewBloodUnitRepository(db),
		BloodRequest:    NewBloodRequestRepository(db),
		HospitalRequest: NewHospitalRequestRepository(db),
		AuditLog:        NewAuditLogRepository(db),
		Notification:    NewNotificationRepository(db),
		Session:         NewSessionRepository(db),
	}
}
