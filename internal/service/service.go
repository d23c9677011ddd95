package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blood-donation/internal/config"
	"blood-donation/internal/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/audit"
	"blood-donation/internal/service/auth"
	"blood-donation/internal/service/donation"
	"blood-donation/internal/service/email"
	"blood-donation/internal/service/export"
	"blood-donation/internal/service/fulfillment"
	"blood-donation/internal/service/inventory"
	"blood-donation/internal/service/matching"
	"blood-donation/internal/service/notification"
	"blood-donation/internal/service/reporting"
	"blood-donation/internal/service/request"
)

type Services struct {
	Auth         auth.Service
	Email        email.Service
	Notification notification.Service
	Audit        audit.Service
	Matching     matching.Service
	Inventory    inventory.Service
	Fulfillment  fulfillment.Service
	Request      request.Service
	Donation     donation.Service
	Reporting    reporting.Service
	Export       export.Service
	Sweeper      *inventory.Sweeper
}

func NewServices(repos *repository.Repositories, redis *redis.Client, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Services {
	emailService := email.NewService(cfg)
	authService := auth.NewService(repos.User, repos.Hospital, repos.Admin, repos.Session, emailService, cfg, logger)
	notificationService := notification.NewService(repos.Notification, emailService, logger, m, cfg.Domain)
	auditService := audit.NewService(repos.AuditLog)

	matchingService := matching.NewService(repos.Donor)
	inventoryService := inventory.NewService(repos.BloodUnit, repos.Hospital, repos.AuditLog, notificationService, logger, m, inventory.Options{
		LowStockThreshold: cfg.LowStockThreshold,
		ExpiryAlertDays:   cfg.ExpiryAlertDays,
		Locale:            cfg.Locale,
	})
	fulfillmentService := fulfillment.NewService(
		repos.BloodUnit,
		repos.BloodRequest,
		repos.HospitalRequest,
		repos.Hospital,
		repos.AuditLog,
		notificationService,
		logger,
		m,
		cfg.Locale,
	)
	requestService := request.NewService(repos.BloodRequest, repos.HospitalRequest)
	donationService := donation.NewService(repos.Donation, repos.User, repos.AuditLog, inventoryService, notificationService, logger, cfg.Locale)

	reportingService := reporting.NewService(repos.BloodUnit, repos.BloodRequest, repos.Donor, matchingService, redis, logger, reporting.Options{
		CacheTTL:          cfg.ReportCacheTTL,
		LowStockThreshold: cfg.LowStockThreshold,
		ExpiryAlertDays:   cfg.ExpiryAlertDays,
	})

	var store export.ObjectStore
	if minioClient != nil {
		store = minioClient
	}
	exportService := export.NewService(inventoryService, reportingService, store, cfg.MinIOBucket, cfg.ReportLinkTTL, logger)

	return &Services{
		Auth:         authService,
		Email:        emailService,
		Notification: notificationService,
		Audit:        auditService,
		Matching:     matchingService,
		Inventory:    inventoryService,
		Fulfillment:  fulfillmentService,
		Request:      requestService,
		Donation:     donationService,
		Reporting:    reportingService,
		Export:       exportService,
		Sweeper:      inventory.NewSweeper(inventoryService, fulfillmentService, cfg.SweepInterval, logger),
	}
}
