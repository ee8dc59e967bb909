package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"styleforge/internal/domain"
)

// StyleRepositoryPG implements domain.StyleRepository.
type StyleRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStyleRepository creates a new style repository backed by PostgreSQL.
func NewStyleRepository(pool *pgxpool.Pool) *StyleRepositoryPG {
	return &StyleRepositoryPG{pool: pool}
}

// Create inserts a new style profile.
func (r *StyleRepositoryPG) Create(ctx context.Context, style *domain.StyleProfile) error {
	refs, err := json.Marshal(style.References)
	if err != nil {
		return fmt.Errorf("encode references: %w", err)
	}
	settings, err := json.Marshal(style.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	query := `
INSERT INTO style_profiles (id, user_id, name, references_json, master_prompt, embedding, color_palette, characteristics, generation_settings)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err = r.pool.Exec(ctx, query,
		style.ID,
		style.UserID,
		style.Name,
		refs,
		style.MasterPrompt,
		embeddingParam(style.Embedding),
		style.ColorPalette,
		style.Characteristics,
		settings,
	)
	return err
}

// GetByID fetches a style profile by its identifier.
func (r *StyleRepositoryPG) GetByID(ctx context.Context, id string) (*domain.StyleProfile, error) {
	query := `
SELECT id, user_id, name, references_json, master_prompt, embedding, color_palette, characteristics, generation_settings, created_at, updated_at
FROM style_profiles
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)

	var (
		profile  domain.StyleProfile
		refs     []byte
		vec      *pgvector.Vector
		settings []byte
	)
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&refs,
		&profile.MasterPrompt,
		&vec,
		&profile.ColorPalette,
		&profile.Characteristics,
		&settings,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &profile.References); err != nil {
			return nil, fmt.Errorf("decode references: %w", err)
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &profile.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	if vec != nil {
		profile.Embedding = vec.Slice()
	}
	return &profile, nil
}

// Update sets only the fields present on the patch in a single statement, so
// derived fields written together always land atomically.
func (r *StyleRepositoryPG) Update(ctx context.Context, id string, patch domain.StyleProfileUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(expr string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if patch.Name != nil {
		add("name = $%d", *patch.Name)
	}
	if patch.References != nil {
		refs, err := json.Marshal(patch.References)
		if err != nil {
			return fmt.Errorf("encode references: %w", err)
		}
		add("references_json = $%d", refs)
	}
	if patch.MasterPrompt != nil {
		add("master_prompt = $%d", *patch.MasterPrompt)
	}
	if patch.Embedding != nil {
		add("embedding = $%d", pgvector.NewVector(patch.Embedding))
	}
	if patch.ColorPalette != nil {
		add("color_palette = $%d", patch.ColorPalette)
	}
	if patch.Characteristics != nil {
		add("characteristics = $%d", patch.Characteristics)
	}
	if patch.Settings != nil {
		settings, err := json.Marshal(patch.Settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		add("generation_settings = $%d", settings)
	}

	query := "UPDATE style_profiles SET " + strings.Join(sets, ", ") + " WHERE id = $1;"
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func embeddingParam(embedding []float32) any {
	if embedding == nil {
		return nil
	}
	return pgvector.NewVector(embedding)
}
