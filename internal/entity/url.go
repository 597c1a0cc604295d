// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a registered short URL, along with its
// usage counter and expiration, and the errors shared by the use case and adapters.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortURLExists is returned by a repository when the unique constraint on the short URL is violated.
	ErrShortURLExists = errors.New("short url exists")
	// ErrAliasExists is returned when a short URL for the requested alias is already registered.
	ErrAliasExists = errors.New("custom alias already exists")
	// ErrURLNotFound is returned when no URL is registered for the requested short URL.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when the requested URL exists but its expiration time has passed.
	ErrURLExpired = errors.New("url has expired")
	// ErrInvalidExpiration is returned when the requested expiration falls outside the supported range.
	ErrInvalidExpiration = errors.New("expiration out of range")
)

// URL represents a registered short URL.
type URL struct {
	ID          string     // ID is the identifier assigned by the store.
	OriginalURL string     // OriginalURL is the destination address.
	ShortURL    string     // ShortURL is the full short address: scheme, host and short code.
	Clicks      int64      // Clicks is the number of successful resolutions.
	CreatedAt   time.Time  // CreatedAt is set once when the URL is registered.
	ExpiresAt   *time.Time // ExpiresAt is nil when the URL never expires.
}

// Expired reports whether the URL has an expiration time and t is after it.
func (u *URL) Expired(t time.Time) bool {
	return u.ExpiresAt != nil && t.After(*u.ExpiresAt)
}

// ShortenInput holds the caller supplied values for registering a URL.
type ShortenInput struct {
	OriginalURL   string
	CustomAlias   string
	ExpiresInDays int
}
