package app

import (
	"context"
	"net/http"

	"plantpedia/internal/auth"
	"plantpedia/internal/i18n"
)

// RequestInfo is the request-scoped state handlers need: which locale to
// render, who is signed in and whether draft content was requested.
type RequestInfo struct {
	Locale     string
	LocaleFrom string
	Session    *auth.Session
	Preview    bool
	T          *i18n.Translator
}

type requestInfoKey struct{}

func withRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func requestInfo(r *http.Request) RequestInfo {
	info, _ := r.Context().Value(requestInfoKey{}).(RequestInfo)
	return info
}
