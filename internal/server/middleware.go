package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paperifyhq/paperify/internal/session"
	"go.uber.org/zap"
)

const (
	sessionCookie = "paperify_session"

	ctxSessionToken = "session_token"
	ctxSessionData  = "session_data"
)

// SessionContext resolves the session token from the Authorization header
// or the session cookie and attaches the payload to the request context.
// It never rejects; RequireAuth does.
func (s *Server) SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(sessionCookie)
		}
		if token == "" {
			c.Next()
			return
		}

		data, err := s.sessions.Get(c.Request.Context(), token)
		if err != nil {
			s.log.Warn("session lookup failed", zap.Error(err))
			c.Next()
			return
		}
		if data != nil {
			if data.TempUnlimitedUntil == 0 {
				if exp, err := s.sessions.Override(c.Request.Context(), data.Email); err == nil && exp != nil {
					data.TempUnlimitedUntil = exp.UnixMilli()
				}
			}
			c.Set(ctxSessionToken, token)
			c.Set(ctxSessionData, *data)
		}
		c.Next()
	}
}

func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentSession(c); !ok {
			s.AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to the configured superuser account.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := currentSession(c)
		if !ok {
			s.AbortWithError(c, ErrUnauthorized)
			return
		}
		if !s.isAdmin(data.Email) {
			s.AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) isAdmin(email string) bool {
	return strings.EqualFold(email, s.cfg.Admin.SuperuserEmail)
}

func currentSession(c *gin.Context) (session.Data, bool) {
	v, ok := c.Get(ctxSessionData)
	if !ok {
		return session.Data{}, false
	}
	data, ok := v.(session.Data)
	return data, ok
}

func currentToken(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxSessionToken)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
