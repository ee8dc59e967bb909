package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"styleforge/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a new generation repository backed by PostgreSQL.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Insert persists a new generation. The parent, when set, must belong to the
// same style; the check runs inside the insert so the invariant cannot race.
func (r *GenerationRepositoryPG) Insert(ctx context.Context, gen *domain.Generation) error {
	meta, err := json.Marshal(gen.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if gen.ParentID != nil {
		parent, err := r.GetByID(ctx, *gen.ParentID)
		if err != nil {
			return fmt.Errorf("resolve parent: %w", err)
		}
		if parent.StyleID != gen.StyleID {
			return fmt.Errorf("%w: parent generation belongs to a different style", domain.ErrValidation)
		}
	}
	query := `
INSERT INTO generations (id, project_id, parent_id, style_id, prompt, image_url, provider, status, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err = r.pool.Exec(ctx, query,
		gen.ID,
		gen.ProjectID,
		gen.ParentID,
		gen.StyleID,
		gen.Prompt,
		gen.ImageURL,
		gen.Provider,
		gen.Status,
		meta,
	)
	return err
}

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	row := r.pool.QueryRow(ctx, selectGeneration+" WHERE id = $1;", id)
	gen, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

// UpdateStatus transitions a generation's feedback status.
func (r *GenerationRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.GenerationStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE generations SET status = $2 WHERE id = $1;`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByParent returns the direct children of a generation in creation order.
func (r *GenerationRepositoryPG) ListByParent(ctx context.Context, parentID string) ([]domain.Generation, error) {
	rows, err := r.pool.Query(ctx, selectGeneration+" WHERE parent_id = $1 ORDER BY created_at;", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGenerations(rows)
}

// ListAcceptedByStyle returns the style's most recently accepted generations.
func (r *GenerationRepositoryPG) ListAcceptedByStyle(ctx context.Context, styleID string, limit int) ([]domain.Generation, error) {
	rows, err := r.pool.Query(ctx,
		selectGeneration+" WHERE style_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3;",
		styleID, domain.GenerationStatusAccepted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGenerations(rows)
}

const selectGeneration = `
SELECT id, project_id, parent_id, style_id, prompt, image_url, provider, status, metadata, created_at
FROM generations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var (
		gen  domain.Generation
		meta []byte
	)
	if err := row.Scan(
		&gen.ID,
		&gen.ProjectID,
		&gen.ParentID,
		&gen.StyleID,
		&gen.Prompt,
		&gen.ImageURL,
		&gen.Provider,
		&gen.Status,
		&meta,
		&gen.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &gen.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &gen, nil
}

func collectGenerations(rows pgx.Rows) ([]domain.Generation, error) {
	var out []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gen)
	}
	return out, rows.Err()
}
