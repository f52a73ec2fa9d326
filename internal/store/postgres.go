package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"communityAPI/internal/badge"
	"communityAPI/internal/notification"
	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

const schema = `
CREATE TABLE IF NOT EXISTS community_posts (
	id                  TEXT PRIMARY KEY,
	topic               TEXT NOT NULL,
	author_id           TEXT NOT NULL,
	author_display_name TEXT NOT NULL,
	content             TEXT NOT NULL,
	ratings             JSONB NOT NULL DEFAULT '[]',
	average_rating      DOUBLE PRECISION NOT NULL DEFAULT 0,
	helpful_count       INTEGER NOT NULL DEFAULT 0,
	version             BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS community_posts_topic_created_idx ON community_posts (topic, created_at DESC);

CREATE TABLE IF NOT EXISTS user_reputations (
	user_id    TEXT PRIMARY KEY,
	badges     JSONB NOT NULL DEFAULT '{}',
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS device_tokens (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	platform   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS device_tokens_user_idx ON device_tokens (user_id);
`

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool and makes sure the tables exist.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", classifyPgError(err))
	}
	return &PostgresStore{db: db}, nil
}

// NewPgPool opens a pool with the same limits the API has always run with.
func NewPgPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classifyPgError(err))
	}
	return pool, nil
}

func (s *PostgresStore) ListPostsByTopic(ctx context.Context, topic workspace.Topic) ([]*post.Post, error) {
	query := `
	SELECT id, topic, author_id, author_display_name, content, ratings, average_rating, helpful_count, version, created_at
	FROM community_posts
	WHERE topic = $1
	ORDER BY created_at DESC, id
	`

	rows, err := s.db.Query(ctx, query, string(topic))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", classifyPgError(err))
	}
	defer rows.Close()

	posts := []*post.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", classifyPgError(err))
	}
	return posts, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, topic workspace.Topic, postID string) (*post.Post, error) {
	query := `
	SELECT id, topic, author_id, author_display_name, content, ratings, average_rating, helpful_count, version, created_at
	FROM community_posts
	WHERE topic = $1 AND id = $2
	`

	p, err := scanPost(s.db.QueryRow(ctx, query, string(topic), postID))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) PutPost(ctx context.Context, p *post.Post) error {
	ratings, err := json.Marshal(p.Ratings)
	if err != nil {
		return fmt.Errorf("failed to encode ratings: %w", err)
	}

	var tag pgconn.CommandTag
	if p.Version == 0 {
		tag, err = s.db.Exec(ctx, `
		INSERT INTO community_posts (id, topic, author_id, author_display_name, content, ratings, average_rating, helpful_count, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		ON CONFLICT (id) DO NOTHING
		`, p.ID, string(p.Topic), p.AuthorID, p.AuthorDisplayName, p.Content, ratings, p.AverageRating, p.HelpfulCount, p.CreatedAt)
	} else {
		tag, err = s.db.Exec(ctx, `
		UPDATE community_posts
		SET ratings = $3, average_rating = $4, helpful_count = $5, content = $6, version = version + 1
		WHERE id = $1 AND topic = $2 AND version = $7
		`, p.ID, string(p.Topic), ratings, p.AverageRating, p.HelpfulCount, p.Content, p.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to write post: %w", classifyPgError(err))
	}

	if tag.RowsAffected() == 0 {
		if p.Version == 0 {
			return ErrConflict
		}
		if _, err := s.GetPost(ctx, p.Topic, p.ID); err != nil {
			return err
		}
		return ErrConflict
	}

	p.Version++
	return nil
}

func (s *PostgresStore) GetUserReputation(ctx context.Context, userID string) (*badge.UserReputation, error) {
	var raw []byte
	rep := &badge.UserReputation{UserID: userID}

	err := s.db.QueryRow(ctx, `SELECT badges, version FROM user_reputations WHERE user_id = $1`, userID).Scan(&raw, &rep.Version)
	if err != nil {
		return nil, classifyPgError(err)
	}

	if err := json.Unmarshal(raw, &rep.Badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges: %w", err)
	}
	if rep.Badges == nil {
		rep.Badges = make(map[badge.Name]time.Time)
	}
	return rep, nil
}

func (s *PostgresStore) PutUserReputation(ctx context.Context, rep *badge.UserReputation) error {
	raw, err := json.Marshal(rep.Badges)
	if err != nil {
		return fmt.Errorf("failed to encode badges: %w", err)
	}

	var tag pgconn.CommandTag
	if rep.Version == 0 {
		tag, err = s.db.Exec(ctx, `
		INSERT INTO user_reputations (user_id, badges, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id) DO NOTHING
		`, rep.UserID, raw)
	} else {
		tag, err = s.db.Exec(ctx, `
		UPDATE user_reputations
		SET badges = $2, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND version = $3
		`, rep.UserID, raw, rep.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to write reputation: %w", classifyPgError(err))
	}

	if tag.RowsAffected() == 0 {
		if rep.Version == 0 {
			return ErrConflict
		}
		if _, err := s.GetUserReputation(ctx, rep.UserID); err != nil {
			return err
		}
		return ErrConflict
	}

	rep.Version++
	return nil
}

func (s *PostgresStore) RegisterDevice(ctx context.Context, device notification.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO device_tokens (token, user_id, platform, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`, device.Token, device.UserID, device.Platform, device.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", classifyPgError(err))
	}
	return nil
}

func (s *PostgresStore) ListDevices(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
	SELECT token, user_id, platform, created_at
	FROM device_tokens
	WHERE user_id = $1
	ORDER BY token
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", classifyPgError(err))
	}
	defer rows.Close()

	devices := []notification.DeviceToken{}
	for rows.Next() {
		var d notification.DeviceToken
		if err := rows.Scan(&d.Token, &d.UserID, &d.Platform, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", classifyPgError(err))
	}
	return devices, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return classifyPgError(s.db.Ping(ctx))
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func scanPost(row pgx.Row) (*post.Post, error) {
	var (
		p     post.Post
		topic string
		raw   []byte
	)

	err := row.Scan(
		&p.ID,
		&topic,
		&p.AuthorID,
		&p.AuthorDisplayName,
		&p.Content,
		&raw,
		&p.AverageRating,
		&p.HelpfulCount,
		&p.Version,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, classifyPgError(err)
	}

	p.Topic = workspace.Topic(topic)
	if err := json.Unmarshal(raw, &p.Ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings of post %s: %w", p.ID, err)
	}
	if p.Ratings == nil {
		p.Ratings = []post.Rating{}
	}
	return &p, nil
}

// classifyPgError maps driver errors onto the store's error kinds.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08", // connection exception
			"53", // insufficient resources
			"57": // operator intervention
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
