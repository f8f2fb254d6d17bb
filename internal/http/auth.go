package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"cardmarket-bi/internal/cache"
	"cardmarket-bi/internal/log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie carries the opaque token issued by a successful unlock.
const SessionCookie = "cmbi_session"

var ErrWrongPassword = errors.New("wrong password")

// Gate protects the costs page with a single shared password. Sessions are
// random tokens that expire with the session cache TTL.
type Gate struct {
	hash     []byte
	sessions *cache.TTLCache[string]
}

// HashPassword returns the bcrypt hash used by NewGate.
func HashPassword(plain string) ([]byte, error) {
	if plain == "" {
		return nil, errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// NewGate builds a gate from a bcrypt hash. A session lives for ttl.
func NewGate(hash []byte, ttl time.Duration) (*Gate, error) {
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}
	return &Gate{
		hash:     hash,
		sessions: cache.NewTTLCache[string](ttl),
	}, nil
}

// Sessions exposes the session cache so it can be swept periodically.
func (g *Gate) Sessions() *cache.TTLCache[string] {
	return g.sessions
}

// Unlock checks password and opens a session for clientIP.
func (g *Gate) Unlock(password, clientIP string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return "", ErrWrongPassword
	}
	token := uuid.NewString()
	g.sessions.Set(token, clientIP)
	return token, nil
}

// Valid reports whether token names a live session.
func (g *Gate) Valid(token string) bool {
	if token == "" {
		return false
	}
	_, ok := g.sessions.Get(token)
	return ok
}

// Lock ends the session.
func (g *Gate) Lock(token string) {
	g.sessions.Delete(token)
}

// TTL is the session lifetime.
func (g *Gate) TTL() time.Duration {
	return g.sessions.TTL()
}

// unlocked reports whether r carries a live session cookie.
func (s *Server) unlocked(r *http.Request) bool {
	if s.gate == nil {
		return false
	}
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	return s.gate.Valid(c.Value)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	if s.gate == nil {
		s.renderCostsDisabled(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	clientIP := s.detector.ExtractClientIP(r)
	token, err := s.gate.Unlock(r.PostFormValue("password"), clientIP)
	if err != nil {
		logger.WarnContext(r.Context(), "Costs unlock failed", log.FieldOperation, log.OpUnlock, log.FieldClientIP, clientIP)
		s.renderLocked(w, r, http.StatusUnauthorized, "Wrong password.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.gate.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	logger.InfoContext(r.Context(), "Costs page unlocked", log.FieldOperation, log.OpUnlock, log.FieldClientIP, clientIP)
	http.Redirect(w, r, "/costs", http.StatusSeeOther)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && s.gate != nil {
		s.gate.Lock(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/costs", http.StatusSeeOther)
}

// requireUnlocked guards handlers that expose expense data.
func (s *Server) requireUnlocked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gate == nil {
			http.Error(w, "costs data is disabled", http.StatusForbidden)
			return
		}
		if !s.unlocked(r) {
			http.Error(w, "costs data is locked", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
