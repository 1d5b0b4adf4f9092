// Package isr keeps rendered pages in a store and regenerates them in the
// background once their revalidation interval has passed.
package isr

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrStoreUnavailable wraps failures of the backing store.
var ErrStoreUnavailable = errors.New("isr: store unavailable")

// Page is one rendered response held in the store.
type Page struct {
	Key         string        `json:"key"`
	Status      int           `json:"status"`
	Body        []byte        `json:"body"`
	Location    string        `json:"location,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Revalidate  time.Duration `json:"revalidate"`
	// ExpiresAt, when set, is when the store may forget the page. Not-found
	// markers carry one; rendered pages do not.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Key identifies a page by locale and request path.
func Key(locale, path string) string {
	return locale + ":" + path
}

// Fresh reports whether the page can be served without regeneration.
func (p Page) Fresh(now time.Time) bool {
	if p.Revalidate <= 0 {
		return true
	}
	return now.Before(p.GeneratedAt.Add(p.Revalidate))
}

// Expired reports whether the page is past its ExpiresAt.
func (p Page) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// OK reports whether the page is a successful render.
func (p Page) OK() bool {
	return p.Status == http.StatusOK
}

// Store persists rendered pages. Get reports a miss with ok=false and a nil
// error.
type Store interface {
	Get(ctx context.Context, key string) (page Page, ok bool, err error)
	Put(ctx context.Context, page Page) error
	Close() error
}

// Pruner is implemented by stores that can drop expired pages in bulk.
type Pruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
