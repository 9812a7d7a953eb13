package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"enrollment-gateway/internal/infra/upstream"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	AccessTokenHeader    = "X-Access-Token"
	SessionExpiredHeader = "X-Session-Expired"

	sessionKey = "upstream_session"
)

// RefreshFunc renews the access token held by s.
type RefreshFunc func(ctx context.Context, s *upstream.Session) error

// UpstreamSession builds the caller's platform session from the bearer and
// refresh tokens. Tokens renewed during the request are echoed back in
// response headers so the caller can store them. An expired bearer is
// renewed before the handler runs; if that fails the request ends with 401.
func UpstreamSession(refresh RefreshFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := upstream.NewSession()
		if access := c.GetString("access_token"); access != "" {
			s.LoginTokens(access, c.GetHeader(RefreshTokenHeader))
		}

		s.OnChange(func(tok *oauth2.Token) {
			h := c.Writer.Header()
			if tok == nil {
				h.Del(AccessTokenHeader)
				h.Del(RefreshTokenHeader)
				h.Set(SessionExpiredHeader, "1")
				return
			}
			h.Set(AccessTokenHeader, tok.AccessToken)
			if tok.RefreshToken != "" {
				h.Set(RefreshTokenHeader, tok.RefreshToken)
			}
		})

		if c.GetBool(tokenExpiredKey) {
			var err error
			if refresh == nil {
				err = upstream.ErrLoginRequired
			} else {
				err = refresh(c.Request.Context(), s)
			}
			if err != nil {
				slog.Debug("expired bearer could not be renewed",
					slog.String("trace_id", c.GetString("trace_id")),
					slog.Any("error", err),
				)
				s.Logout()
				c.Header(SessionExpiredHeader, "1")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Platform session expired, please log in again"})
				return
			}
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// SessionFrom returns the request's platform session, or an empty one when
// the middleware did not run.
func SessionFrom(c *gin.Context) *upstream.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*upstream.Session); ok {
			return s
		}
	}
	return upstream.NewSession()
}
