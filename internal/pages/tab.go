package pages

import (
	"context"
	"sync"

	"plantpedia/internal/content"
)

// StoryFetcher loads the plants of one author.
type StoryFetcher func(ctx context.Context, authorID string) ([]content.Plant, error)

// Banner is the inline notice shown above an author's stories.
type Banner string

const (
	BannerNone      Banner = ""
	BannerError     Banner = "error"
	BannerNoStories Banner = "no_stories"
)

// TabState is a snapshot of an author tab.
type TabState struct {
	Status     content.QueryStatus
	AuthorID   string
	Plants     []content.Plant
	Err        error
	Generation uint64
}

// Banner picks the notice for this state. An empty successful fetch is not an
// error.
func (s TabState) Banner() Banner {
	switch {
	case s.Status == content.StatusError:
		return BannerError
	case s.Status == content.StatusSuccess && len(s.Plants) == 0:
		return BannerNoStories
	default:
		return BannerNone
	}
}

// SettledState is the terminal state for a finished fetch of authorID. A nil
// plant list from a successful fetch becomes empty.
func SettledState(authorID string, plants []content.Plant, err error) TabState {
	if err != nil {
		return TabState{Status: content.StatusError, AuthorID: authorID, Err: err}
	}
	if plants == nil {
		plants = []content.Plant{}
	}
	return TabState{Status: content.StatusSuccess, AuthorID: authorID, Plants: plants}
}

// Terminal reports whether the fetch for this state has finished.
func (s TabState) Terminal() bool {
	return s.Status == content.StatusSuccess || s.Status == content.StatusError
}

// Tab drives idle -> loading -> success|error for the selected author. Each
// Select starts a new generation; a fetch that completes after a newer Select
// is discarded, so only the latest selection reaches the visible state.
type Tab struct {
	fetch StoryFetcher

	mu      sync.Mutex
	state   TabState
	changed chan struct{}
}

// NewTab returns an idle tab.
func NewTab(fetch StoryFetcher) *Tab {
	return &Tab{
		fetch:   fetch,
		state:   TabState{Status: content.StatusIdle},
		changed: make(chan struct{}),
	}
}

// Select switches to authorID and starts its fetch. It returns the generation
// to pass to Await.
func (t *Tab) Select(ctx context.Context, authorID string) uint64 {
	t.mu.Lock()
	gen := t.state.Generation + 1
	t.state = TabState{Status: content.StatusLoading, AuthorID: authorID, Generation: gen}
	t.notifyLocked()
	t.mu.Unlock()

	go func() {
		plants, err := t.fetch(ctx, authorID)
		t.complete(gen, plants, err)
	}()
	return gen
}

// complete applies a finished fetch if it still belongs to the current
// generation.
func (t *Tab) complete(gen uint64, plants []content.Plant, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.state.Generation {
		return false
	}
	settled := SettledState(t.state.AuthorID, plants, err)
	settled.Generation = gen
	t.state = settled
	t.notifyLocked()
	return true
}

// State returns the current snapshot.
func (t *Tab) State() TabState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Await blocks until generation gen is terminal or has been superseded by a
// newer Select, and returns the state at that point.
func (t *Tab) Await(ctx context.Context, gen uint64) (TabState, error) {
	for {
		t.mu.Lock()
		state, changed := t.state, t.changed
		t.mu.Unlock()

		if state.Generation != gen || state.Terminal() {
			return state, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

func (t *Tab) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
