package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

type Service interface {
	GetRecentActivities(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditLog, error)
	GetEntityHistory(ctx context.Context, actor domain.Actor, entityType string, entityID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.AuditLog], error)
}

var entityTypes = map[string]bool{
	"blood_unit":             true,
	"blood_request":          true,
	"hospital_blood_request": true,
	"donation":               true,
	"hospital":               true,
}

type service struct {
	auditRepo repository.AuditLogRepository
}

func NewService(auditRepo repository.AuditLogRepository) Service {
	return &service{
		auditRepo: auditRepo,
	}
}

func (s *service) GetRecentActivities(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditLog, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	params := domain.PaginationParams{
		Page:     1,
		PageSize: limit,
	}
	params.Validate()

	logs, _, err := s.auditRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// GetEntityHistory lists the transitions recorded for one entity, newest first.
func (s *service) GetEntityHistory(ctx context.Context, actor domain.Actor, entityType string, entityID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.AuditLog], error) {
	if !actor.IsAdmin() && !actor.IsHospital() {
		return domain.PaginatedResponse[domain.AuditLog]{}, domain.ErrForbidden
	}
	if !entityTypes[entityType] {
		return domain.PaginatedResponse[domain.AuditLog]{}, domain.InvalidInput("unknown entity type %q", entityType)
	}
	params.Validate()

	logs, total, err := s.auditRepo.ListByEntity(ctx, entityType, entityID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.AuditLog]{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return domain.NewPaginatedResponse(logs, params.Page, params.PageSize, total), nil
}
