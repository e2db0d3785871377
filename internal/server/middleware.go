package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finguard/finguard/common/errors"
)

// TokenVerifier validates a bearer token and returns its subject. Satisfied
// by the identities service.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// TraceIDMiddleware assigns every request a trace id, reusing the caller's
// X-Trace-ID header when present.
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("trace_id", traceID)
		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}

// AuthMiddleware enforces a bearer token on protected routes. A nil verifier
// disables enforcement, used for local development.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			errors.WriteError(c, errors.New(errors.KindUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}

		sub, err := verifier.VerifyToken(token)
		if err != nil {
			errors.WriteError(c, err)
			c.Abort()
			return
		}
		c.Set("user_sub", sub)
		c.Next()
	}
}
