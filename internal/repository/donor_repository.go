package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

// DonorRepository reads donor profiles for matching. Location is taken from
// the donor's most recent pending donation.
type DonorRepository interface {
	QueryByBloodTypes(ctx context.Context, types []domain.BloodType, q domain.DonorQuery) ([]domain.Donor, int64, error)
	CountByBloodTypes(ctx context.Context, types []domain.BloodType) ([]domain.DonorCount, error)
}

type donorRepository struct {
	db *sqlx.DB
}

func NewDonorRepository(db *sqlx.DB) DonorRepository {
	return &donorRepository{db: db}
}

const donorBaseQuery = `
	WITH donors AS (
		SELECT u.id, u.full_name, u.email, u.blood_type, u.created_at,
			(SELECT d.location FROM donations d
				WHERE d.user_id = u.id AND d.status = 'pending'
				ORDER BY d.created_at DESC LIMIT 1) AS location
		FROM users u
		WHERE u.deleted_at IS NULL AND u.is_active = TRUE AND u.blood_type IN (?)
	)`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

func donorFilter(types []domain.BloodType, q domain.DonorQuery) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{domain.BloodTypeStrings(types)}

	if strings.TrimSpace(q.Search) != "" {
		pattern := containsPattern(q.Search)
		conds = append(conds, "(full_name ILIKE ? OR email ILIKE ?)")
		args = append(args, pattern, pattern)
	}
	if strings.TrimSpace(q.Location) != "" {
		conds = append(conds, "location ILIKE ?")
		args = append(args, containsPattern(q.Location))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	return where, args
}

// QueryByBloodTypes returns one page of donors ordered exact type first,
// then the universal donor, then other compatible types, newest first
// within each group.
func (r *donorRepository) QueryByBloodTypes(ctx context.Context, types []domain.BloodType, q domain.DonorQuery) ([]domain.Donor, int64, error) {
	if len(types) == 0 {
		return []domain.Donor{}, 0, nil
	}

	where, args := donorFilter(types, q)

	countQuery, countArgs, err := sqlx.In(donorBaseQuery+` SELECT COUNT(*) FROM donors`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, q.Recipient, domain.UniversalDonor, q.Limit, q.Offset)
	query, queryArgs, err := sqlx.In(donorBaseQuery+`
		SELECT id, full_name, email, blood_type, location, created_at FROM donors`+where+`
		ORDER BY CASE WHEN blood_type = ? THEN 1 WHEN blood_type = ? THEN 2 ELSE 3 END, created_at DESC
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}

	donors := []domain.Donor{}
	err = r.db.SelectContext(ctx, &donors, r.db.Rebind(query), queryArgs...)
	return donors, total, err
}

func (r *donorRepository) CountByBloodTypes(ctx context.Context, types []domain.BloodType) ([]domain.DonorCount, error) {
	if len(types) == 0 {
		return []domain.DonorCount{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT blood_type, COUNT(*) AS count
		FROM users
		WHERE deleted_at IS NULL AND is_active = TRUE AND blood_type IN (?)
		GROUP BY blood_type`, domain.BloodTypeStrings(types))
	if err != nil {
		return nil, err
	}

	var counts []domain.DonorCount
	err = r.db.SelectContext(ctx, &counts, r.db.Rebind(query), args...)
	return counts, err
}
