package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeform/session"
)

// SessionCookie names the cookie carrying the builder session id.
const SessionCookie = "scrapeform_session"

const keySession = "session"

// Session attaches the caller's builder session, starting a new one (and
// setting the cookie) when the cookie is missing or stale.
func Session(store *session.Store, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		s, created := store.GetOrCreate(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, s.ID, 0, "/", "", secure, true)
		}
		c.Set(keySession, s)
		c.Next()
	}
}

// SessionFrom returns the session attached by Session.
func SessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(keySession).(*session.Session)
}
