package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"styleforge/internal/domain"
)

// FeedbackRepositoryPG implements domain.FeedbackRepository. Entries are
// append-only; there is no update path.
type FeedbackRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository backed by PostgreSQL.
func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepositoryPG {
	return &FeedbackRepositoryPG{pool: pool}
}

// Insert appends one feedback entry.
func (r *FeedbackRepositoryPG) Insert(ctx context.Context, entry *domain.FeedbackEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	var edit, reject []byte
	var err error
	if entry.Edit != nil {
		if edit, err = json.Marshal(entry.Edit); err != nil {
			return fmt.Errorf("encode edit payload: %w", err)
		}
	}
	if entry.Reject != nil {
		if reject, err = json.Marshal(entry.Reject); err != nil {
			return fmt.Errorf("encode rejection payload: %w", err)
		}
	}
	query := `
INSERT INTO feedback_entries (id, generation_id, feedback_type, edit_payload, rejection_payload, refined_prompt)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.GenerationID,
		entry.Type,
		edit,
		reject,
		entry.RefinedPrompt,
	)
	return err
}

// ListRecentByStyle returns feedback on the style's most recent
// generationWindow generations, newest first, capped at limit entries.
func (r *FeedbackRepositoryPG) ListRecentByStyle(ctx context.Context, styleID string, generationWindow, limit int) ([]domain.FeedbackEntry, error) {
	query := `
SELECT f.id, f.generation_id, f.feedback_type, f.edit_payload, f.rejection_payload, f.refined_prompt, f.created_at
FROM feedback_entries f
JOIN (
    SELECT id FROM generations
    WHERE style_id = $1
    ORDER BY created_at DESC
    LIMIT $2
) g ON g.id = f.generation_id
ORDER BY f.created_at DESC
LIMIT $3;
`
	rows, err := r.pool.Query(ctx, query, styleID, generationWindow, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeedbackEntry
	for rows.Next() {
		var (
			entry  domain.FeedbackEntry
			edit   []byte
			reject []byte
		)
		if err := rows.Scan(&entry.ID, &entry.GenerationID, &entry.Type, &edit, &reject, &entry.RefinedPrompt, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(edit) > 0 {
			entry.Edit = &domain.EditRequest{}
			if err := json.Unmarshal(edit, entry.Edit); err != nil {
				return nil, fmt.Errorf("decode edit payload: %w", err)
			}
		}
		if len(reject) > 0 {
			entry.Reject = &domain.Rejection{}
			if err := json.Unmarshal(reject, entry.Reject); err != nil {
				return nil, fmt.Errorf("decode rejection payload: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
