package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

// Session holds the bearer token for the authenticated shopper. Absence of a
// token is a valid anonymous state, not an error. Every REST client reads the
// token through CurrentToken instead of consulting storage on its own, and
// 401 responses are funneled through HandleUnauthorized so the cart store and
// payment flows react uniformly.
type Session struct {
	mu             sync.RWMutex
	token          string
	onUnauthorized func(context.Context)
}

func New() *Session {
	return &Session{}
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// OnUnauthorized registers the callback invoked whenever the backend rejects
// a request with 401. The latest registration wins.
func (s *Session) OnUnauthorized(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnauthorized = fn
}

// CurrentToken returns the bearer token and whether one is usable. An
// expired token is reported as absent: the signature is the backend's to
// verify, the expiry claim is enough to know the token is dead weight.
func (s *Session) CurrentToken() (string, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return "", false
	}

	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		// Opaque tokens are passed through as-is.
		return token, true
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", false
	}
	return token, true
}

func (s *Session) HandleUnauthorized(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Session HandleUnauthorized").
		Logger()
	logger.Info().Msg("backend rejected token, clearing session")

	s.mu.Lock()
	s.token = ""
	fn := s.onUnauthorized
	s.mu.Unlock()

	if fn != nil {
		fn(c)
	}
}
