package pages

import (
	"errors"
	"time"

	"plantpedia/internal/content"
)

// Kind is the variant of a props resolution.
type Kind int

const (
	KindProps Kind = iota
	KindNotFound
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindProps:
		return "props"
	case KindNotFound:
		return "not_found"
	case KindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Cause explains why a resolution did not produce the happy-path props.
type Cause int

const (
	CauseNone Cause = iota
	// CauseAbsent: the content source has no such entity.
	CauseAbsent
	// CauseMalformed: the route parameter was rejected before any fetch.
	CauseMalformed
	// CauseFetchFailure: the content source could not be reached or decoded.
	CauseFetchFailure
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseAbsent:
		return "absent"
	case CauseMalformed:
		return "malformed"
	case CauseFetchFailure:
		return "fetch_failure"
	default:
		return "unknown"
	}
}

// Redirect points the client at a canonical location.
type Redirect struct {
	Destination string
	Permanent   bool
}

// Result is the outcome of resolving one page. Props is only meaningful for
// KindProps, Redirect only for KindRedirect. Cause and Err survive on every
// kind so callers can tell absence from an outage.
type Result[P any] struct {
	Kind       Kind
	Props      P
	Revalidate time.Duration
	Redirect   Redirect
	Cause      Cause
	Err        error
}

func found[P any](props P, revalidate time.Duration) Result[P] {
	return Result[P]{Kind: KindProps, Props: props, Revalidate: revalidate}
}

func notFound[P any](cause Cause, err error) Result[P] {
	return Result[P]{Kind: KindNotFound, Cause: cause, Err: err}
}

func redirect[P any](destination string) Result[P] {
	return Result[P]{Kind: KindRedirect, Redirect: Redirect{Destination: destination}}
}

// fromError maps a content client failure onto NotFound, keeping the cause.
func fromError[P any](err error) Result[P] {
	if errors.Is(err, content.ErrNotFound) {
		return notFound[P](CauseAbsent, err)
	}
	return notFound[P](CauseFetchFailure, err)
}

// Params holds raw route parameters. A parameter is valid only when it has
// exactly one non-empty value.
type Params map[string][]string

// Single returns the only value of name.
func (p Params) Single(name string) (string, bool) {
	values, ok := p[name]
	if !ok || len(values) != 1 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

// slugParam validates a slug-shaped route parameter and returns it as given.
func slugParam(p Params, name string) (string, bool) {
	raw, ok := p.Single(name)
	if !ok {
		return "", false
	}
	slug, err := CheckSlug(raw)
	if err != nil {
		return "", false
	}
	return slug, true
}
