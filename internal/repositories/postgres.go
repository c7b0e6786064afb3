package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ansaros/chesslessons-si-sub001/internal/db"
	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, elevated, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Email, user.Password, user.Elevated, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findWhere(ctx, `email = $1`, email)
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findWhere(ctx, `id = $1`, id)
}

func (r *PostgresUserRepository) findWhere(ctx context.Context, predicate, arg string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, elevated, created_at, updated_at
        FROM users
        WHERE `+predicate, arg)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Elevated, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// PostgresVideoCatalog provides PostgreSQL-backed access to the lesson catalog.
type PostgresVideoCatalog struct {
	pool db.Pool
}

// NewPostgresVideoCatalog constructs a catalog backed by PostgreSQL.
func NewPostgresVideoCatalog(pool db.Pool) *PostgresVideoCatalog {
	return &PostgresVideoCatalog{pool: pool}
}

// FindByID fetches a single catalog entry.
func (r *PostgresVideoCatalog) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, tier, price_minor_units, storage_key, media_type, duration_seconds, created_at
        FROM videos
        WHERE id = $1
    `, id)

	var video models.Video
	if err := row.Scan(&video.ID, &video.Title, &video.Tier, &video.PriceMinorUnits, &video.StorageKey, &video.MediaType, &video.DurationSeconds, &video.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// List returns the catalog in newest-first order.
func (r *PostgresVideoCatalog) List(ctx context.Context) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, tier, price_minor_units, storage_key, media_type, duration_seconds, created_at
        FROM videos
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.ID, &video.Title, &video.Tier, &video.PriceMinorUnits, &video.StorageKey, &video.MediaType, &video.DurationSeconds, &video.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// SetStorageKey records the object-store key after an asset upload.
func (r *PostgresVideoCatalog) SetStorageKey(ctx context.Context, id, storageKey string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET storage_key = $2
        WHERE id = $1
    `, id, storageKey)
	if err != nil {
		return fmt.Errorf("update video storage key: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresEntitlementRepository reads purchase and subscription records.
type PostgresEntitlementRepository struct {
	pool db.Pool
}

// NewPostgresEntitlementRepository constructs an entitlement reader backed by PostgreSQL.
func NewPostgresEntitlementRepository(pool db.Pool) *PostgresEntitlementRepository {
	return &PostgresEntitlementRepository{pool: pool}
}

// ForUser returns the user's purchased video ids and subscription status. A
// user with no records gets an empty entitlement set, not an error.
func (r *PostgresEntitlementRepository) ForUser(ctx context.Context, userID string) (models.Entitlements, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Entitlements{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT video_id
        FROM purchases
        WHERE user_id = $1
    `, userID)
	if err != nil {
		return models.Entitlements{}, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	entitlements := models.Entitlements{Purchased: make(map[string]struct{})}
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return models.Entitlements{}, fmt.Errorf("scan purchase: %w", err)
		}
		entitlements.Purchased[videoID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return models.Entitlements{}, fmt.Errorf("iterate purchases: %w", err)
	}

	row := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions
            WHERE user_id = $1 AND expires_at > NOW()
        )
    `, userID)
	if err := row.Scan(&entitlements.SubscriptionActive); err != nil {
		return models.Entitlements{}, fmt.Errorf("select subscription status: %w", err)
	}

	return entitlements, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoCatalog = (*PostgresVideoCatalog)(nil)
var _ EntitlementRepository = (*PostgresEntitlementRepository)(nil)
