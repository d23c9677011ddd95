package matching

import (
	"context"
	"fmt"
	"sort"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

type Service interface {
	FindCompatibleDonors(ctx context.Context, recipient domain.BloodType, query domain.MatchQuery) (*domain.MatchResult, error)
	CompatibleTypes(recipient domain.BloodType) ([]domain.BloodType, error)
	CountCompatibleDonors(ctx context.Context, recipient domain.BloodType) ([]domain.CompatibleTypeCount, error)
}

type service struct {
	donorRepo repository.DonorRepository
}

func NewService(donorRepo repository.DonorRepository) Service {
	return &service{donorRepo: donorRepo}
}

func (s *service) CompatibleTypes(recipient domain.BloodType) ([]domain.BloodType, error) {
	return domain.CompatibleDonorTypes(recipient)
}

func (s *service) FindCompatibleDonors(ctx context.Context, recipient domain.BloodType, query domain.MatchQuery) (*domain.MatchResult, error) {
	types, err := domain.CompatibleDonorTypes(recipient)
	if err != nil {
		return nil, err
	}

	params := query.Pagination()
	result := &domain.MatchResult{
		RecipientType:   recipient,
		Donors:          []domain.DonorMatch{},
		CompatibleTypes: types,
		Page:            params.Page,
		PageSize:        params.PageSize,
	}
	if len(types) == 0 {
		return result, nil
	}

	donors, total, err := s.donorRepo.QueryByBloodTypes(ctx, types, domain.DonorQuery{
		Recipient: recipient,
		Search:    query.Search,
		Location:  query.Location,
		Limit:     params.PageSize,
		Offset:    params.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query donors: %w", err)
	}

	result.Donors = rank(recipient, donors)
	result.Total = total
	return result, nil
}

// rank annotates donors and orders them by priority, newest first within a
// priority. The repository already orders this way; sorting again keeps the
// page stable regardless of backend.
func rank(recipient domain.BloodType, donors []domain.Donor) []domain.DonorMatch {
	matches := make([]domain.DonorMatch, len(donors))
	for i, d := range donors {
		p := domain.PriorityFor(recipient, d.BloodType)
		matches[i] = domain.DonorMatch{
			Donor:              d,
			MatchPriority:      p,
			CompatibilityLabel: p.Label(),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchPriority != matches[j].MatchPriority {
			return matches[i].MatchPriority < matches[j].MatchPriority
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches
}

func (s *service) CountCompatibleDonors(ctx context.Context, recipient domain.BloodType) ([]domain.CompatibleTypeCount, error) {
	types, err := domain.CompatibleDonorTypes(recipient)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return []domain.CompatibleTypeCount{}, nil
	}

	counts, err := s.donorRepo.CountByBloodTypes(ctx, types)
	if err != nil {
		return nil, fmt.Errorf("failed to count donors: %w", err)
	}
	byType := make(map[domain.BloodType]int64, len(counts))
	for _, c := range counts {
		byType[c.BloodType] = c.Count
	}

	out := make([]domain.CompatibleTypeCount, 0, len(types))
	for _, t := range types {
		out = append(out, domain.CompatibleTypeCount{
			BloodType:     t,
			MatchPriority: domain.PriorityFor(recipient, t),
			Donors:        byType[t],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchPriority < out[j].MatchPriority })
	return out, nil
}
