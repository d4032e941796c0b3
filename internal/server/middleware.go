package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/bookline/internal/observability/logger"
)

type inboundRateLimitKey struct {
	FromPhone string `json:"from_phone"`
}

// InboundRateLimit throttles webhook traffic per sender phone. The phone is
// peeked from the body, which is restored for the handler.
func (s *Server) InboundRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.inboundLimiter.Enabled() {
			c.Next()
			return
		}

		phone, err := readInboundPhone(c)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		ctx := c.Request.Context()
		allowed, err := s.inboundLimiter.AllowPhone(ctx, phone)
		if err != nil {
			logger.FromContext(ctx).Warn("inbound rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			logger.FromContext(ctx).Warn("inbound rate limit exceeded",
				zap.String("phone", phone),
				zap.String("route", c.FullPath()),
			)
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func readInboundPhone(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload inboundRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.FromPhone), nil
}
