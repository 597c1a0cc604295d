package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vadimbarashkov/url-registry/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxRetries = 5

// MaxExpiresInDays bounds the expiration offset accepted by Shorten in both directions.
const MaxExpiresInDays = 36500

var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	FindByShortURL(ctx context.Context, shortURL string) (*entity.URL, error)
	IncrementClicks(ctx context.Context, shortURL string) (*entity.URL, error)
}

type Option func(*URLUseCase)

// WithClock replaces the time source used for creation and expiration times.
func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

type URLUseCase struct {
	shortCodeLength int
	urlRepo         urlRepository
	now             func() time.Time
}

func New(shortCodeLength int, urlRepo urlRepository, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		shortCodeLength: shortCodeLength,
		urlRepo:         urlRepo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ComposeShortURL joins the base URL of a request and a short code into a full short URL.
func ComposeShortURL(baseURL, shortCode string) string {
	return strings.TrimRight(baseURL, "/") + "/" + shortCode
}

// Shorten registers in.OriginalURL under in.CustomAlias, or under a generated short code when
// no alias is given. Generated codes that collide are regenerated one character longer.
func (uc *URLUseCase) Shorten(ctx context.Context, baseURL string, in entity.ShortenInput) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Shorten"

	now := uc.now()

	expiresAt, err := expiration(now, in.ExpiresInDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	template := entity.URL{
		OriginalURL: in.OriginalURL,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if in.CustomAlias != "" {
		url, err := uc.register(ctx, ComposeShortURL(baseURL, in.CustomAlias), template)
		if err != nil {
			if errors.Is(err, entity.ErrShortURLExists) {
				return nil, fmt.Errorf("%s: %w", op, entity.ErrAliasExists)
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	length := uc.shortCodeLength

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.New(length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := uc.register(ctx, ComposeShortURL(baseURL, shortCode), template)
		if err != nil {
			if errors.Is(err, entity.ErrShortURLExists) {
				length++
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// expiration returns nil for zero days. The result must stay within years 1-9999,
// the range timestamps can be encoded in.
func expiration(now time.Time, days int) (*time.Time, error) {
	if days == 0 {
		return nil, nil
	}
	if days < -MaxExpiresInDays || days > MaxExpiresInDays {
		return nil, entity.ErrInvalidExpiration
	}

	expiresAt := now.AddDate(0, 0, days)
	if year := expiresAt.Year(); year < 1 || year > 9999 {
		return nil, entity.ErrInvalidExpiration
	}

	return &expiresAt, nil
}

func (uc *URLUseCase) register(ctx context.Context, shortURL string, template entity.URL) (*entity.URL, error) {
	_, err := uc.urlRepo.FindByShortURL(ctx, shortURL)
	if err == nil {
		return nil, entity.ErrShortURLExists
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, err
	}

	url := template
	url.ShortURL = shortURL

	return uc.urlRepo.Save(ctx, &url)
}

// Resolve returns the URL registered for shortCode after counting the click.
// Expired URLs are reported with entity.ErrURLExpired and are not counted.
func (uc *URLUseCase) Resolve(ctx context.Context, baseURL, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Resolve"

	shortURL := ComposeShortURL(baseURL, shortCode)

	url, err := uc.urlRepo.FindByShortURL(ctx, shortURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Expired(uc.now()) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
	}

	url, err = uc.urlRepo.IncrementClicks(ctx, shortURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to count click: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) GetAnalytics(ctx context.Context, baseURL, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetAnalytics"

	url, err := uc.urlRepo.FindByShortURL(ctx, ComposeShortURL(baseURL, shortCode))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url analytics: %w", op, err)
	}

	return url, nil
}
