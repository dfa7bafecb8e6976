package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// schema is applied at startup; every column a pipeline stage owns is
// updated on its own so writers never clobber fields owned by another stage.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL DEFAULT '',
    price             INTEGER NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    image_path        TEXT NOT NULL DEFAULT '',
    processing_status TEXT NOT NULL DEFAULT 'processing',
    processing_error  TEXT NOT NULL DEFAULT '',
    content           JSONB,
    content_ok        BOOLEAN NOT NULL DEFAULT FALSE,
    operation_name    TEXT NOT NULL DEFAULT '',
    reel_state        TEXT NOT NULL DEFAULT 'none',
    reel_url          TEXT NOT NULL DEFAULT '',
    reel_error        TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository is a pgx-backed implementation of Repository.
// Generated content is stored as a JSONB document; all reconciliation
// writes are narrow single-statement UPDATEs.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and ensures the schema.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("product: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("product: ensure schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Create persists a new record.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, title, price, description, image_path, processing_status, reel_state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Title, rec.Price, rec.Description, rec.ImagePath,
		string(rec.ProcessingStatus), string(rec.ReelState), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("product: insert record: %w", err)
	}
	return nil
}

// FindByID retrieves a record by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, price, description, image_path,
		        processing_status, processing_error,
		        content, content_ok,
		        operation_name, reel_state, reel_url, reel_error,
		        created_at, updated_at
		 FROM products WHERE id = $1`, id)

	var (
		rec        Record
		contentRaw []byte
		status     string
		reelState  string
	)
	err := row.Scan(
		&rec.ID, &rec.Title, &rec.Price, &rec.Description, &rec.ImagePath,
		&status, &rec.ProcessingError,
		&contentRaw, &rec.ContentOK,
		&rec.OperationName, &reelState, &rec.ReelURL, &rec.ReelError,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("product: find record: %w", err)
	}

	rec.ProcessingStatus = ProcessingStatus(status)
	rec.ReelState = ReelState(reelState)
	if len(contentRaw) > 0 {
		var content GeneratedContent
		if err := json.Unmarshal(contentRaw, &content); err != nil {
			return nil, fmt.Errorf("product: decode content: %w", err)
		}
		rec.Content = &content
	}
	return &rec, nil
}

// SetImagePath records the stored photo location.
func (r *PostgresRepository) SetImagePath(ctx context.Context, id, path string) error {
	return r.exec(ctx,
		`UPDATE products SET image_path = $2, updated_at = now() WHERE id = $1`,
		id, path)
}

// SetGeneratedContent writes the marketing copy for the record.
func (r *PostgresRepository) SetGeneratedContent(ctx context.Context, id string, content *GeneratedContent, ok bool) error {
	var contentRaw []byte
	if content != nil {
		raw, err := json.Marshal(content)
		if err != nil {
			return fmt.Errorf("product: encode content: %w", err)
		}
		contentRaw = raw
	}
	return r.exec(ctx,
		`UPDATE products SET content = $2, content_ok = $3, updated_at = now() WHERE id = $1`,
		id, contentRaw, ok)
}

// SetOperationName registers the long-running operation handle.
func (r *PostgresRepository) SetOperationName(ctx context.Context, id, operationName string) error {
	return r.exec(ctx,
		`UPDATE products
		 SET operation_name = $2, reel_state = $3, reel_url = '', reel_error = '', updated_at = now()
		 WHERE id = $1`,
		id, operationName, string(ReelSubmitted))
}

// SetReelURL reconciles the poll outcome for a succeeded operation.
func (r *PostgresRepository) SetReelURL(ctx context.Context, id string, url *string) error {
	if url == nil {
		return r.exec(ctx,
			`UPDATE products SET reel_state = $2, reel_url = '', updated_at = now() WHERE id = $1`,
			id, string(ReelUnavailable))
	}
	return r.exec(ctx,
		`UPDATE products SET reel_state = $2, reel_url = $3, updated_at = now() WHERE id = $1`,
		id, string(ReelReady), *url)
}

// SetReelFailure records a failed or timed-out video job.
func (r *PostgresRepository) SetReelFailure(ctx context.Context, id string, state ReelState, detail string) error {
	return r.exec(ctx,
		`UPDATE products SET reel_state = $2, reel_error = $3, updated_at = now() WHERE id = $1`,
		id, string(state), detail)
}

// SetProcessingStatus updates the content-half status.
func (r *PostgresRepository) SetProcessingStatus(ctx context.Context, id string, status ProcessingStatus, errDetail string) error {
	return r.exec(ctx,
		`UPDATE products SET processing_status = $2, processing_error = $3, updated_at = now() WHERE id = $1`,
		id, string(status), errDetail)
}

// exec runs a single partial update and maps a zero row count to not-found.
func (r *PostgresRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("product: update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
