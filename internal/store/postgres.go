package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapofsmiles/companion/internal/domain"
)

// Querier is the subset of pgxpool.Pool used by Postgres.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads stories directly from the store's database.
type Postgres struct {
	db    Querier
	table string
}

// NewPostgres creates a database-backed store
func NewPostgres(db Querier, table string) *Postgres {
	return &Postgres{db: db, table: table}
}

func (r *Postgres) IsConfigured() bool {
	return r.db != nil
}

// FindInWindow runs the bounding-box query.
func (r *Postgres) FindInWindow(ctx context.Context, q domain.StoryQuery) ([]*domain.Story, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = domain.NearbyPageSize
	}
	status := q.Status
	if status == "" {
		status = domain.StatusApproved
	}

	query := fmt.Sprintf(`
		SELECT id::text, lat, lng, text, emotion, created_at, status
		FROM %s
		WHERE status = $1
		  AND lat BETWEEN $2 AND $3
		  AND lng BETWEEN $4 AND $5
		ORDER BY created_at DESC
		LIMIT $6
	`, pgx.Identifier{r.table}.Sanitize())

	rows, err := r.db.Query(ctx, query,
		string(status),
		q.Window.MinLat,
		q.Window.MaxLat,
		q.Window.MinLng,
		q.Window.MaxLng,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	var stories []*domain.Story
	for rows.Next() {
		var s domain.Story
		var emotion, st string
		if err := rows.Scan(&s.ID, &s.Lat, &s.Lng, &s.Text, &emotion, &s.CreatedAt, &st); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		s.Emotion = domain.Emotion(emotion)
		s.Status = domain.StoryStatus(st)
		stories = append(stories, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stories: %w", err)
	}

	return stories, nil
}

// OpenPool connects to the store database.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Read-only consumer; a small pool is enough.
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
