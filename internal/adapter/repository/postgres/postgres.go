package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrCode
}

type urlDB struct {
	ID          int64      `db:"id"`
	OriginalURL string     `db:"original_url"`
	ShortURL    string     `db:"short_url"`
	Clicks      int64      `db:"clicks"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          strconv.FormatInt(u.ID, 10),
		OriginalURL: u.OriginalURL,
		ShortURL:    u.ShortURL,
		Clicks:      u.Clicks,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls(original_url, short_url, created_at, expires_at) VALUES ($1, $2, $3, $4) RETURNING *`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, url.OriginalURL, url.ShortURL, url.CreatedAt, url.ExpiresAt); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortURLExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) FindByShortURL(ctx context.Context, shortURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByShortURL"
	const query = `SELECT * FROM urls WHERE short_url = $1`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, shortURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.IncrementClicks"
	const query = `UPDATE urls SET clicks = clicks + 1 WHERE short_url = $1 RETURNING *`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, shortURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	return row.toEntity(), nil
}
