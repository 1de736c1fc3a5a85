package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreambot/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

const userColumns = `id, tg_id, COALESCE(plan, 'free'), plan_until, monthly_count, last_plan_reset,
COALESCE(timezone, ''), COALESCE(age_band, ''), COALESCE(chronotype, ''), esoterica_level,
COALESCE(sleep_goal, ''), COALESCE(wake_time, ''), COALESCE(sleep_time, ''), stress_level,
COALESCE(dream_frequency, ''), last_report_at, COALESCE(last_report_month, ''), created_at, updated_at`

// GetOrCreateByTgID returns the user for a Telegram id, creating a free-plan
// row on first contact.
func (r *UserRepositoryPG) GetOrCreateByTgID(ctx context.Context, tgID string) (*domain.User, error) {
	query := `
INSERT INTO users (id, tg_id, plan, monthly_count)
VALUES ($1, $2, 'free', 0)
ON CONFLICT (tg_id) DO UPDATE
SET updated_at = NOW()
RETURNING ` + userColumns + `;
`
	row := r.pool.QueryRow(ctx, query, uuid.NewString(), tgID)
	return scanUser(row)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// EnsureMonthlyReset zeroes the monthly counter when the stored reset marker
// belongs to an earlier UTC calendar month. One guarded UPDATE keeps the
// check-and-zero atomic; within the same month it touches nothing.
func (r *UserRepositoryPG) EnsureMonthlyReset(ctx context.Context, userID string, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE users
SET monthly_count = 0, last_plan_reset = $2, updated_at = NOW()
WHERE id = $1
  AND (last_plan_reset IS NULL
       OR date_trunc('month', last_plan_reset AT TIME ZONE 'UTC') <> date_trunc('month', $2::timestamptz AT TIME ZONE 'UTC'));
`, userID, now.UTC())
	return err
}

// IncMonthlyCount advances the interpretation counter by one.
func (r *UserRepositoryPG) IncMonthlyCount(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET monthly_count = monthly_count + 1, updated_at = NOW() WHERE id = $1`, userID)
	return err
}

// SetPlan updates the plan and its expiry for a Telegram id. A zero until
// clears the expiry (free plans do not expire).
func (r *UserRepositoryPG) SetPlan(ctx context.Context, tgID, plan string, until time.Time) error {
	var untilArg any
	if !until.IsZero() {
		untilArg = until
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET plan = $2, plan_until = $3, updated_at = NOW() WHERE tg_id = $1`, tgID, plan, untilArg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetReportMarkers records a report issue: a zero time leaves last_report_at
// untouched, an empty month leaves last_report_month untouched.
func (r *UserRepositoryPG) SetReportMarkers(ctx context.Context, userID string, at time.Time, month string) error {
	var atArg any
	if !at.IsZero() {
		atArg = at
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET last_report_at = COALESCE($2, last_report_at),
    last_report_month = CASE WHEN $3 = '' THEN last_report_month ELSE $3 END,
    updated_at = NOW()
WHERE id = $1;
`, userID, atArg, month)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAll returns every user, oldest first. Used by the reminder scheduler
// and the plan admin tool; the user base is small enough to not page.
func (r *UserRepositoryPG) ListAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.TgID, &u.Plan, &u.PlanUntil, &u.MonthlyCount, &u.LastPlanReset,
		&u.Timezone, &u.AgeBand, &u.Chronotype, &u.EsotericaLevel,
		&u.SleepGoal, &u.WakeTime, &u.SleepTime, &u.StressLevel,
		&u.DreamFrequency, &u.LastReportAt, &u.LastReportMonth, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
