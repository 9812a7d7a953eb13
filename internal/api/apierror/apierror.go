package apierror

import (
	"context"
	"log/slog"
	"net/http"

	"enrollment-gateway/internal/infra/upstream"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Upstream renders a platform API failure. Client errors from the platform
// keep their status; everything else becomes a 502.
func Upstream(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, upstream.ErrLoginRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Platform session expired, please log in again"})
		return
	case errors.Is(err, upstream.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		c.Status(499)
		return
	case errors.Is(err, context.Canceled):
		// a newer request for the same resource took over
		log.Debug("platform request superseded",
			slog.String("trace_id", c.GetString("trace_id")),
			slog.String("path", c.FullPath()),
		)
		c.JSON(http.StatusConflict, gin.H{"error": "Superseded by a newer request"})
		return
	}

	if code := upstream.StatusOf(err); code >= 400 && code < 500 {
		var apiErr *upstream.APIError
		errors.As(err, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(code)
		}
		c.JSON(code, gin.H{"error": msg})
		return
	}

	log.Error("platform request failed",
		slog.String("trace_id", c.GetString("trace_id")),
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	c.JSON(http.StatusBadGateway, gin.H{"error": "Platform unavailable"})
}

// Internal renders a local failure, usually the cache.
func Internal(c *gin.Context, log *slog.Logger, msg string, err error) {
	log.Error(msg,
		slog.String("trace_id", c.GetString("trace_id")),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
