package convert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/park285/boardfen/internal/domain"
)

var ErrDuplicateConversion = errors.New("conversion already exists")

type Repository interface {
	InsertConversion(ctx context.Context, conv *domain.Conversion) error
	GetRecentConversions(ctx context.Context, limit int) ([]*domain.Conversion, error)
	GetConversion(ctx context.Context, id string) (*domain.Conversion, error)
	Backend() string
}

const schema = `
	CREATE TABLE IF NOT EXISTS fen_conversions (
		id              UUID PRIMARY KEY,
		digest          TEXT NOT NULL,
		fen             TEXT NOT NULL,
		placement       TEXT NOT NULL,
		side_to_move    TEXT NOT NULL,
		castling_rights TEXT NOT NULL,
		squares         JSONB NOT NULL,
		source          TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS fen_conversions_created_at_idx ON fen_conversions (created_at DESC);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the conversions table when it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure fen_conversions schema: %w", err)
	}
	return nil
}

func (r *repository) Backend() string { return "postgres" }

func (r *repository) InsertConversion(ctx context.Context, conv *domain.Conversion) error {
	if conv == nil {
		return fmt.Errorf("nil conversion payload")
	}
	squares, err := json.Marshal(conv.Squares)
	if err != nil {
		return fmt.Errorf("marshal squares: %w", err)
	}

	const query = `
		INSERT INTO fen_conversions (
			id,
			digest,
			fen,
			placement,
			side_to_move,
			castling_rights,
			squares,
			source,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(
		ctx,
		query,
		conv.ID,
		conv.Digest,
		conv.FEN,
		conv.Placement,
		conv.SideToMove,
		conv.CastlingRights,
		squares,
		conv.Source,
		conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateConversion
	}
	return nil
}

const selectConversion = `
	SELECT
		id,
		digest,
		fen,
		placement,
		side_to_move,
		castling_rights,
		squares,
		source,
		created_at
	FROM fen_conversions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (*domain.Conversion, error) {
	var (
		conv        domain.Conversion
		squaresJSON []byte
	)
	if err := row.Scan(
		&conv.ID,
		&conv.Digest,
		&conv.FEN,
		&conv.Placement,
		&conv.SideToMove,
		&conv.CastlingRights,
		&squaresJSON,
		&conv.Source,
		&conv.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(squaresJSON, &conv.Squares); err != nil {
		return nil, fmt.Errorf("unmarshal squares: %w", err)
	}
	return &conv, nil
}

func (r *repository) GetRecentConversions(ctx context.Context, limit int) ([]*domain.Conversion, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectConversion+`
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select conversions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Conversion, 0, limit)
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return out, nil
}

// GetConversion returns nil, nil when no row has the id, including ids that are not UUIDs.
func (r *repository) GetConversion(ctx context.Context, id string) (*domain.Conversion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	conv, err := scanConversion(r.db.QueryRowContext(ctx, selectConversion+`
		WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select conversion: %w", err)
	}
	return conv, nil
}
