// Package auth issues signed session cookies and implements the credential
// and GitHub sign-in providers.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "plantpedia.session"
	sessionTTL    = 30 * 24 * time.Hour
	issuer        = "plantpedia"
)

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("auth: no session")

// User is the identity a provider vouches for.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// Session is a signed-in user as seen by handlers.
type Session struct {
	User     User      `json:"user"`
	Provider string    `json:"provider"`
	Expires  time.Time `json:"expires"`
}

type sessionClaims struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Image    string `json:"image,omitempty"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies session tokens with an HMAC secret.
type Sessions struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewSessions builds a session manager. Secure marks cookies HTTPS-only.
func NewSessions(secret []byte, secure bool) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session secret must not be empty")
	}
	return &Sessions{secret: secret, secure: secure, now: time.Now}, nil
}

// RandomSecret returns a hex secret for deployments that did not configure
// one. Sessions signed with it do not survive a restart.
func RandomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue signs a token for user.
func (s *Sessions) Issue(user User, provider string) (string, Session, error) {
	now := s.now()
	expires := now.Add(sessionTTL)
	claims := sessionClaims{
		Name:     user.Name,
		Email:    user.Email,
		Image:    user.Image,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session: %w", err)
	}
	return token, Session{User: user, Provider: provider, Expires: expires}, nil
}

// Parse verifies a token and returns its session.
func (s *Sessions) Parse(token string) (Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !parsed.Valid {
		return Session{}, ErrNoSession
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return Session{
		User:     User{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Image: claims.Image},
		Provider: claims.Provider,
		Expires:  expires,
	}, nil
}

// FromRequest reads the session cookie.
func (s *Sessions) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Session{}, ErrNoSession
	}
	return s.Parse(c.Value)
}

// SignIn issues a session for user and sets the cookie.
func (s *Sessions) SignIn(w http.ResponseWriter, user User, provider string) (Session, error) {
	token, session, err := s.Issue(user, provider)
	if err != nil {
		return Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.Expires,
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return session, nil
}

// SignOut clears the session cookie.
func (s *Sessions) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PreviewCookie marks a browser as viewing draft content.
const PreviewCookie = "plantpedia.preview"

const previewTTL = time.Hour

// PreviewToken signs a short-lived token enabling preview mode.
func (s *Sessions) PreviewToken() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   "preview",
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(previewTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// PreviewFromRequest reports whether r carries a valid preview cookie.
func (s *Sessions) PreviewFromRequest(r *http.Request) bool {
	c, err := r.Cookie(PreviewCookie)
	if err != nil || c.Value == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithSubject("preview"), jwt.WithTimeFunc(s.now))
	return err == nil && token.Valid
}

// EnablePreview sets the preview cookie.
func (s *Sessions) EnablePreview(w http.ResponseWriter) error {
	token, err := s.PreviewToken()
	if err != nil {
		return fmt.Errorf("sign preview token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     PreviewCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(previewTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// DisablePreview clears the preview cookie.
func (s *Sessions) DisablePreview(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: PreviewCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})
}
