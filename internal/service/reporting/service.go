package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/matching"
)

const (
	overviewCacheKey = "report:blood_type_overview"
	locationCacheKey = "report:location_stats"
)

type Service interface {
	StockSummary(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) (*domain.StockSummary, error)
	MatchingSummary(ctx context.Context, recipient domain.BloodType) (*domain.MatchingSummary, error)
	BloodTypeOverview(ctx context.Context) (*domain.BloodTypeOverview, error)
	LocationStats(ctx context.Context) (*domain.LocationStats, error)
}

type Options struct {
	CacheTTL          time.Duration
	LowStockThreshold int
	ExpiryAlertDays   int
}

type service struct {
	unitRepo    repository.BloodUnitRepository
	requestRepo repository.BloodRequestRepository
	donorRepo   repository.DonorRepository
	matching    matching.Service
	redis       *redis.Client
	logger      *zap.Logger
	opts        Options
	now         func() time.Time
}

func NewService(
	unitRepo repository.BloodUnitRepository,
	requestRepo repository.BloodRequestRepository,
	donorRepo repository.DonorRepository,
	matchingSvc matching.Service,
	redis *redis.Client,
	logger *zap.Logger,
	opts Options,
) Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.LowStockThreshold < 1 {
		opts.LowStockThreshold = 5
	}
	if opts.ExpiryAlertDays < 1 {
		opts.ExpiryAlertDays = 7
	}
	return &service{
		unitRepo:    unitRepo,
		requestRepo: requestRepo,
		donorRepo:   donorRepo,
		matching:    matchingSvc,
		redis:       redis,
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

// StockSummary reads live unit counts and is never cached.
func (s *service) StockSummary(ctx context.Context, actor domain.Actor, hospitalID uuid.UUID) (*domain.StockSummary, error) {
	if !actor.CanManageHospital(hospitalID) {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	var counts, expiring []domain.UnitCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.unitRepo.CountByTypeAndStatus(gctx, &hospitalID)
		return err
	})
	g.Go(func() error {
		var err error
		expiring, err = s.unitRepo.CountExpiring(gctx, hospitalID, now, now.AddDate(0, 0, s.opts.ExpiryAlertDays))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build stock summary: %w", err)
	}

	stocks := make(map[domain.BloodType]*domain.BloodTypeStock, len(domain.AllBloodTypes))
	for _, bt := range domain.AllBloodTypes {
		stocks[bt] = &domain.BloodTypeStock{BloodType: bt}
	}
	for _, c := range counts {
		st, ok := stocks[c.BloodType]
		if !ok {
			continue
		}
		switch c.Status {
		case domain.UnitAvailable:
			st.Available += c.Count
		case domain.UnitReserved:
			st.Reserved += c.Count
		case domain.UnitUsed:
			st.Used += c.Count
		case domain.UnitExpired:
			st.Expired += c.Count
		}
	}
	for _, c := range expiring {
		if st, ok := stocks[c.BloodType]; ok {
			st.ExpiringSoon += c.Count
		}
	}

	summary := &domain.StockSummary{
		HospitalID:      hospitalID,
		Stocks:          make([]domain.BloodTypeStock, 0, len(domain.AllBloodTypes)),
		LowStockTypes:   []domain.BloodType{},
		ExpiryAlertDays: s.opts.ExpiryAlertDays,
		GeneratedAt:     now,
	}
	for _, bt := range domain.AllBloodTypes {
		st := stocks[bt]
		st.BelowThreshold = st.Available < s.opts.LowStockThreshold
		if st.BelowThreshold {
			summary.LowStockTypes = append(summary.LowStockTypes, bt)
		}
		summary.TotalAvailable += st.Available
		summary.TotalReserved += st.Reserved
		summary.Stocks = append(summary.Stocks, *st)
	}
	return summary, nil
}

// MatchingSummary counts donors and system-wide available units for every
// type that can donate to recipient, in match priority order.
func (s *service) MatchingSummary(ctx context.Context, recipient domain.BloodType) (*domain.MatchingSummary, error) {
	if !recipient.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidBloodType, string(recipient))
	}

	var donors []domain.CompatibleTypeCount
	var available map[domain.BloodType]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donors, err = s.matching.CountCompatibleDonors(gctx, recipient)
		return err
	})
	g.Go(func() error {
		var err error
		available, err = s.availableByType(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &domain.MatchingSummary{RecipientType: recipient, CompatibleTypes: donors}
	for i := range summary.CompatibleTypes {
		c := &summary.CompatibleTypes[i]
		c.Available = available[c.BloodType]
		summary.TotalDonors += c.Donors
		summary.TotalAvailable += c.Available
	}
	return summary, nil
}

func (s *service) BloodTypeOverview(ctx context.Context) (*domain.BloodTypeOverview, error) {
	var overview domain.BloodTypeOverview
	if s.getCached(ctx, overviewCacheKey, &overview) {
		return &overview, nil
	}

	var donors []domain.DonorCount
	var available map[domain.BloodType]int
	var requests []domain.RequestCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donors, err = s.donorRepo.CountByBloodTypes(gctx, domain.AllBloodTypes)
		return err
	})
	g.Go(func() error {
		var err error
		available, err = s.availableByType(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = s.requestRepo.CountByStatusAndType(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build blood type overview: %w", err)
	}

	donorsByType := make(map[domain.BloodType]int64, len(donors))
	for _, d := range donors {
		donorsByType[d.BloodType] = d.Count
	}
	openByType := map[domain.BloodType]int64{}
	for _, r := range requests {
		if r.Status.IsOpen() {
			openByType[domain.BloodType(r.Key)] += r.Count
		}
	}

	overview = domain.BloodTypeOverview{
		Rows:        make([]domain.BloodTypeOverviewRow, 0, len(domain.AllBloodTypes)),
		GeneratedAt: s.now(),
	}
	for _, bt := range domain.AllBloodTypes {
		canDonate, _ := domain.CanDonateTo(bt)
		canReceive, _ := domain.CompatibleDonorTypes(bt)

		compatibleUnits := 0
		for _, donor := range canReceive {
			compatibleUnits += available[donor]
		}

		overview.Rows = append(overview.Rows, domain.BloodTypeOverviewRow{
			BloodType:      bt,
			Donors:         donorsByType[bt],
			AvailableUnits: available[bt],
			OpenRequests:   openByType[bt],
			CanDonateTo:    canDonate,
			CanReceiveFrom: canReceive,
			CoverageRatio:  coverage(int64(compatibleUnits), openByType[bt]),
		})
	}

	s.setCached(ctx, overviewCacheKey, overview)
	return &overview, nil
}

func (s *service) LocationStats(ctx context.Context) (*domain.LocationStats, error) {
	var stats domain.LocationStats
	if s.getCached(ctx, locationCacheKey, &stats) {
		return &stats, nil
	}

	counts, err := s.requestRepo.CountByLocationAndStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by location: %w", err)
	}

	byLocation := map[string]*domain.LocationStat{}
	for _, c := range counts {
		st, ok := byLocation[c.Key]
		if !ok {
			st = &domain.LocationStat{Location: c.Key}
			byLocation[c.Key] = st
		}
		st.TotalRequests += c.Count
		if c.Status.IsOpen() {
			st.OpenRequests += c.Count
		}
		if c.Status == domain.RequestFulfilled {
			st.Fulfilled += c.Count
		}
	}

	stats = domain.LocationStats{
		Locations:   make([]domain.LocationStat, 0, len(byLocation)),
		GeneratedAt: s.now(),
	}
	for _, st := range byLocation {
		st.FulfillmentRate = rate(st.Fulfilled, st.TotalRequests)
		stats.Locations = append(stats.Locations, *st)
	}
	sort.Slice(stats.Locations, func(i, j int) bool {
		a, b := stats.Locations[i], stats.Locations[j]
		if a.TotalRequests != b.TotalRequests {
			return a.TotalRequests > b.TotalRequests
		}
		return a.Location < b.Location
	})

	s.setCached(ctx, locationCacheKey, stats)
	return &stats, nil
}

func (s *service) availableByType(ctx context.Context) (map[domain.BloodType]int, error) {
	counts, err := s.unitRepo.CountByTypeAndStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count units: %w", err)
	}
	out := make(map[domain.BloodType]int, len(domain.AllBloodTypes))
	for _, c := range counts {
		if c.Status == domain.UnitAvailable {
			out[c.BloodType] += c.Count
		}
	}
	return out, nil
}

func (s *service) getCached(ctx context.Context, key string, dst any) bool {
	if s.redis == nil {
		return false
	}
	cached, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(cached, dst) == nil
}

func (s *service) setCached(ctx context.Context, key string, v any) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.opts.CacheTTL).Err(); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// rate is part/total rounded to four places; zero when total is zero.
func rate(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).Round(4)
}

// coverage is the share of open requests the compatible stock could serve,
// capped at one. With no open requests the type is fully covered.
func coverage(units, open int64) decimal.Decimal {
	if open == 0 || units >= open {
		return decimal.NewFromInt(1)
	}
	return rate(units, open)
}
