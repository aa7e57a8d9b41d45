package middleware

import (
	"net/http"
	"time"

	"github.com/rahul4469/gitgrade/context"
	"github.com/rahul4469/gitgrade/internal/models"
)

// SessionMiddleware gives every browser an anonymous dashboard session.
// Settings and history are keyed by it.
type SessionMiddleware struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

func NewSessionMiddleware(cookieName string, maxAge time.Duration, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		CookieName: cookieName,
		MaxAge:     maxAge,
		Secure:     secure,
	}
}

// SetSession loads the session from its cookie, issuing a new one when the
// cookie is missing or malformed, and stores it in the request context.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session
		if cookie, err := r.Cookie(m.CookieName); err == nil {
			session, _ = models.SessionFromToken(cookie.Value)
		}
		if session == nil {
			session = models.NewSession()
		}

		// Refresh on every request so active browsers keep their history.
		http.SetCookie(w, &http.Cookie{
			Name:     m.CookieName,
			Value:    session.Token,
			Path:     "/",
			MaxAge:   int(m.MaxAge.Seconds()),
			HttpOnly: true,
			Secure:   m.Secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.ContextSetSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentSession is a helper to get the session from any handler.
func CurrentSession(r *http.Request) *models.Session {
	return context.ContextGetSession(r.Context())
}
