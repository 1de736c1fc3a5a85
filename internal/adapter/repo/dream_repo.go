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

// DreamRepositoryPG implements domain.DreamRepository backed by PostgreSQL.
type DreamRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDreamRepository creates a new DreamRepositoryPG.
func NewDreamRepository(pool *pgxpool.Pool) *DreamRepositoryPG {
	return &DreamRepositoryPG{pool: pool}
}

const dreamColumns = `id, user_id, slept_at, COALESCE(text, ''), COALESCE(symbols_raw, ''), llm_json,
COALESCE(keywords, ''), COALESCE(sentiment, ''), tokens_in, tokens_out, cost_rub, created_at`

// Create inserts a new dream entry, assigning an id when the caller left it
// empty.
func (r *DreamRepositoryPG) Create(ctx context.Context, entry *domain.DreamEntry) (*domain.DreamEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
INSERT INTO dream_entries (id, user_id, slept_at, text, symbols_raw, keywords, sentiment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + dreamColumns + `;
`
	row := r.pool.QueryRow(ctx, query,
		entry.ID, entry.UserID, entry.SleptAt, entry.Text, entry.SymbolsRaw, entry.Keywords, entry.Sentiment)
	return scanDream(row)
}

// GetByID fetches one dream entry.
func (r *DreamRepositoryPG) GetByID(ctx context.Context, id string) (*domain.DreamEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dreamColumns+` FROM dream_entries WHERE id = $1`, id)
	return scanDream(row)
}

// GetLast returns the user's most recent entry.
func (r *DreamRepositoryPG) GetLast(ctx context.Context, userID string) (*domain.DreamEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dreamColumns+` FROM dream_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanDream(row)
}

// FirstDreamAt returns the instant of the user's earliest dream, nil when
// none exist.
func (r *DreamRepositoryPG) FirstDreamAt(ctx context.Context, userID string) (*time.Time, error) {
	row := r.pool.QueryRow(ctx, `SELECT MIN(COALESCE(slept_at, created_at)) FROM dream_entries WHERE user_id = $1`, userID)
	var first *time.Time
	if err := row.Scan(&first); err != nil {
		return nil, err
	}
	return first, nil
}

// ListSince returns the user's entries attributed to from or later, oldest
// first.
func (r *DreamRepositoryPG) ListSince(ctx context.Context, userID string, from time.Time) ([]domain.DreamEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+dreamColumns+`
FROM dream_entries
WHERE user_id = $1 AND COALESCE(slept_at, created_at) >= $2
ORDER BY COALESCE(slept_at, created_at);
`, userID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.DreamEntry
	for rows.Next() {
		e, err := scanDream(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SaveInterpretation stores the validated LLM JSON on the entry.
func (r *DreamRepositoryPG) SaveInterpretation(ctx context.Context, entryID string, llmJSON []byte) error {
	return r.execOnEntry(ctx, `UPDATE dream_entries SET llm_json = $2 WHERE id = $1`, entryID, llmJSON)
}

// SaveEntryCost stores the token counts and RUB cost of the interpret call.
func (r *DreamRepositoryPG) SaveEntryCost(ctx context.Context, entryID string, tokensIn, tokensOut int, costRub float64) error {
	return r.execOnEntry(ctx, `UPDATE dream_entries SET tokens_in = $2, tokens_out = $3, cost_rub = $4 WHERE id = $1`, entryID, tokensIn, tokensOut, costRub)
}

// UpdateKeywords rewrites the keywords column, which doubles as the tag set.
func (r *DreamRepositoryPG) UpdateKeywords(ctx context.Context, entryID, keywords string) error {
	return r.execOnEntry(ctx, `UPDATE dream_entries SET keywords = $2 WHERE id = $1`, entryID, keywords)
}

func (r *DreamRepositoryPG) execOnEntry(ctx context.Context, query, entryID string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, append([]any{entryID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanDream(row pgx.Row) (*domain.DreamEntry, error) {
	var e domain.DreamEntry
	if err := row.Scan(
		&e.ID, &e.UserID, &e.SleptAt, &e.Text, &e.SymbolsRaw, &e.LLMJSON,
		&e.Keywords, &e.Sentiment, &e.TokensIn, &e.TokensOut, &e.CostRub, &e.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

var _ domain.DreamRepository = (*DreamRepositoryPG)(nil)
