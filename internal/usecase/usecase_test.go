package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

const baseURL = "http://localhost:8080"

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	args := r.Called(ctx, url)
	saved, _ := args.Get(0).(*entity.URL)
	return saved, args.Error(1)
}

func (r *MockURLRepository) FindByShortURL(ctx context.Context, shortURL string) (*entity.URL, error) {
	args := r.Called(ctx, shortURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) IncrementClicks(ctx context.Context, shortURL string) (*entity.URL, error) {
	args := r.Called(ctx, shortURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown  error
	now         time.Time
	urlRepoMock *MockURLRepository
	uc          *URLUseCase
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.now = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.uc = New(7, suite.urlRepoMock, WithClock(func() time.Time {
		return suite.now
	}))
}

func (suite *URLUseCaseTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
}

func (suite *URLUseCaseTestSuite) TestShorten() {
	aliasURL := baseURL + "/my-alias"

	suite.Run("alias exists", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), aliasURL).
			Once().
			Return(&entity.URL{ShortURL: aliasURL}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
			CustomAlias: "my-alias",
		})

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrAliasExists)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
	})

	suite.Run("alias inserted concurrently", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), aliasURL).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.Anything).
			Once().
			Return(nil, entity.ErrShortURLExists)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
			CustomAlias: "my-alias",
		})

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrAliasExists)
		suite.Nil(url)
	})

	suite.Run("lookup error", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), aliasURL).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
			CustomAlias: "my-alias",
		})

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.NotErrorIs(err, entity.ErrAliasExists)
		suite.Nil(url)
	})

	suite.Run("short code generation error", func() {
		suite.uc.shortCodeLength = -1

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
		})

		suite.Error(err)
		suite.Nil(url)
	})

	suite.Run("maximum retries error", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), mock.Anything).
			Times(maxRetries).
			Return(&entity.URL{}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
		})

		suite.Error(err)
		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(url)
	})

	suite.Run("generated code collision is retried", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), mock.Anything).
			Once().
			Return(&entity.URL{}, nil)
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.MatchedBy(func(u *entity.URL) bool {
				return len(strings.TrimPrefix(u.ShortURL, baseURL+"/")) == 8
			})).
			Once().
			Return(&entity.URL{ShortURL: baseURL + "/abcd1234"}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
		})

		suite.NoError(err)
		suite.NotNil(url)
	})

	suite.Run("unknown save error", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
		})

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success with expiration", func() {
		wantExpiresAt := suite.now.Add(24 * time.Hour)

		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.MatchedBy(func(u *entity.URL) bool {
				return u.OriginalURL == "https://example.com" &&
					strings.HasPrefix(u.ShortURL, baseURL+"/") &&
					u.Clicks == 0 &&
					u.CreatedAt.Equal(suite.now) &&
					u.ExpiresAt != nil && u.ExpiresAt.Equal(wantExpiresAt)
			})).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    baseURL + "/abc1234",
				CreatedAt:   suite.now,
				ExpiresAt:   &wantExpiresAt,
			}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			ExpiresInDays: 1,
		})

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal(baseURL+"/abc1234", url.ShortURL)
	})

	suite.Run("success with alias and no expiration", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), aliasURL).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.MatchedBy(func(u *entity.URL) bool {
				return u.ShortURL == aliasURL && u.ExpiresAt == nil
			})).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    aliasURL,
				CreatedAt:   suite.now,
			}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL: "https://example.com",
			CustomAlias: "my-alias",
		})

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(aliasURL, url.ShortURL)
		suite.Nil(url.ExpiresAt)
	})

	suite.Run("expiration beyond upper bound", func() {
		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			CustomAlias:   "far",
			ExpiresInDays: MaxExpiresInDays + 1,
		})

		suite.ErrorIs(err, entity.ErrInvalidExpiration)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "FindByShortURL", mock.Anything, mock.Anything)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
	})

	suite.Run("expiration beyond lower bound", func() {
		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			ExpiresInDays: -MaxExpiresInDays - 1,
		})

		suite.ErrorIs(err, entity.ErrInvalidExpiration)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
	})

	suite.Run("expiration overflowing the day count", func() {
		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			CustomAlias:   "wrap",
			ExpiresInDays: 4611686018427387903,
		})

		suite.ErrorIs(err, entity.ErrInvalidExpiration)
		suite.Nil(url)
	})

	suite.Run("expiration after year 9999", func() {
		uc := New(7, suite.urlRepoMock, WithClock(func() time.Time {
			return time.Date(9990, time.January, 1, 0, 0, 0, 0, time.UTC)
		}))

		url, err := uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			CustomAlias:   "far",
			ExpiresInDays: MaxExpiresInDays,
		})

		suite.ErrorIs(err, entity.ErrInvalidExpiration)
		suite.Nil(url)
	})

	suite.Run("expiration before year 1", func() {
		uc := New(7, suite.urlRepoMock, WithClock(func() time.Time {
			return time.Date(10, time.January, 1, 0, 0, 0, 0, time.UTC)
		}))

		url, err := uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			CustomAlias:   "old",
			ExpiresInDays: -MaxExpiresInDays,
		})

		suite.ErrorIs(err, entity.ErrInvalidExpiration)
		suite.Nil(url)
	})

	suite.Run("expiration at upper bound", func() {
		wantExpiresAt := suite.now.AddDate(0, 0, MaxExpiresInDays)

		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), aliasURL).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", context.Background(), mock.MatchedBy(func(u *entity.URL) bool {
				return u.ExpiresAt != nil && u.ExpiresAt.Equal(wantExpiresAt)
			})).
			Once().
			Return(&entity.URL{ShortURL: aliasURL, ExpiresAt: &wantExpiresAt}, nil)

		url, err := suite.uc.Shorten(context.Background(), baseURL, entity.ShortenInput{
			OriginalURL:   "https://example.com",
			CustomAlias:   "my-alias",
			ExpiresInDays: MaxExpiresInDays,
		})

		suite.NoError(err)
		suite.Equal(wantExpiresAt, *url.ExpiresAt)
	})
}

func (suite *URLUseCaseTestSuite) TestResolve() {
	shortURL := baseURL + "/abc123"

	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.Resolve(context.Background(), baseURL, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("url expired", func() {
		expiresAt := suite.now.Add(-time.Second)

		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    shortURL,
				ExpiresAt:   &expiresAt,
			}, nil)

		url, err := suite.uc.Resolve(context.Background(), baseURL, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLExpired)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "IncrementClicks", mock.Anything, mock.Anything)
	})

	suite.Run("increment error", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(&entity.URL{ShortURL: shortURL}, nil)
		suite.urlRepoMock.
			On("IncrementClicks", context.Background(), shortURL).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.Resolve(context.Background(), baseURL, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		expiresAt := suite.now.Add(time.Hour)

		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    shortURL,
				ExpiresAt:   &expiresAt,
			}, nil)
		suite.urlRepoMock.
			On("IncrementClicks", context.Background(), shortURL).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    shortURL,
				Clicks:      1,
				ExpiresAt:   &expiresAt,
			}, nil)

		url, err := suite.uc.Resolve(context.Background(), baseURL, "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal(int64(1), url.Clicks)
	})
}

func (suite *URLUseCaseTestSuite) TestGetAnalytics() {
	shortURL := baseURL + "/abc123"

	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.GetAnalytics(context.Background(), baseURL, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.GetAnalytics(context.Background(), baseURL, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("expired url is still reported", func() {
		expiresAt := suite.now.Add(-time.Hour)

		suite.urlRepoMock.
			On("FindByShortURL", context.Background(), shortURL).
			Once().
			Return(&entity.URL{
				OriginalURL: "https://example.com",
				ShortURL:    shortURL,
				Clicks:      3,
				CreatedAt:   suite.now.Add(-48 * time.Hour),
				ExpiresAt:   &expiresAt,
			}, nil)

		url, err := suite.uc.GetAnalytics(context.Background(), baseURL, "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(3), url.Clicks)
		suite.Equal(&expiresAt, url.ExpiresAt)
	})
}

func TestComposeShortURL(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		shortCode string
		want      string
	}{
		{name: "plain", baseURL: "http://localhost:8080", shortCode: "abc", want: "http://localhost:8080/abc"},
		{name: "trailing slash", baseURL: "https://sho.rt/", shortCode: "abc", want: "https://sho.rt/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeShortURL(tt.baseURL, tt.shortCode); got != tt.want {
				t.Errorf("ComposeShortURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
