package middleware

import (
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/observability"
)

const (
	defaultSessionCookie = "routine_session"
	defaultSessionMaxAge = 30 * 24 * time.Hour
)

// SessionData is the visitor state carried in the signed session cookie. The
// ID keys the visitor's persisted selection and chat transcript.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SessionOptions configures a Sessions manager.
type SessionOptions struct {
	CookieName string
	// HashKey signs the cookie. An empty key yields a process-ephemeral one.
	HashKey []byte
	// BlockKey optionally encrypts the cookie (16, 24 or 32 bytes).
	BlockKey []byte
	MaxAge   time.Duration
	Secure   bool
}

// Sessions loads and persists SessionData through gorilla/securecookie.
type Sessions struct {
	name      string
	maxAge    time.Duration
	secure    bool
	codec     *securecookie.SecureCookie
	ephemeral bool
}

// NewSessions constructs a session manager.
func NewSessions(opts SessionOptions) *Sessions {
	s := &Sessions{
		name:   opts.CookieName,
		maxAge: opts.MaxAge,
		secure: opts.Secure,
	}
	if s.name == "" {
		s.name = defaultSessionCookie
	}
	if s.maxAge <= 0 {
		s.maxAge = defaultSessionMaxAge
	}
	hashKey := opts.HashKey
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		s.ephemeral = true
	}
	var blockKey []byte
	if len(opts.BlockKey) > 0 {
		blockKey = opts.BlockKey
	}
	s.codec = securecookie.New(hashKey, blockKey)
	s.codec.SetSerializer(securecookie.JSONEncoder{})
	s.codec.MaxAge(int(s.maxAge / time.Second))
	return s
}

// Ephemeral reports whether the signing key was generated for this process only.
func (m *Sessions) Ephemeral() bool { return m.ephemeral }

// Secure reports whether cookies are marked Secure.
func (m *Sessions) Secure() bool { return m.secure }

// Middleware loads or initializes a session and stores it in request context.
// The cookie is written just before the first byte of the response when the
// session is new or was modified.
func (m *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := m.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{
				ID:        newSessionID(now),
				CSRFToken: newCSRFToken(),
				CreatedAt: now,
				UpdatedAt: now,
				dirty:     true,
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)

		rw := NewResponseRecorder(w)
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				m.write(w, r, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			m.write(w, r, sd)
		}
	})
}

func (m *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := m.codec.Decode(m.name, c.Value, &sd); err != nil {
		observability.FromContext(r.Context()).Debug("session cookie rejected", zap.Error(err))
		return &SessionData{}, false
	}
	return &sd, true
}

func (m *Sessions) write(w http.ResponseWriter, r *http.Request, sd *SessionData) {
	val, err := m.codec.Encode(m.name, sd)
	if err != nil {
		observability.FromContext(r.Context()).Warn("session cookie encode failed", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.maxAge / time.Second),
	})
	sd.dirty = false
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// newSessionID returns a ULID with crypto/rand entropy, falling back to the
// package's default entropy source when reading from entropy fails.
func newSessionID(now time.Time) string {
	return sessionIDFrom(now, rand.Reader)
}

func sessionIDFrom(now time.Time, entropy io.Reader) string {
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
