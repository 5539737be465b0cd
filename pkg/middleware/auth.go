// Package middleware provides gin middleware for the confcenter management
// plane: bearer-token authentication, permission checks, request logging and
// panic recovery.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/pkg/authz"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/response"
	"github.com/kart-io/confcenter/pkg/security/jwt"
)

// Context keys set by Auth.
const (
	ContextSubject = "auth.subject"
	ContextRoles   = "auth.roles"
)

// Auth verifies the Authorization bearer token and stores the caller's
// subject and roles on the gin context.
func Auth(mgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errors.ErrUnauthorized.WithMessage("missing Authorization header"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			response.Abort(c, errors.ErrUnauthorized.WithMessage("expected Bearer authorization scheme"))
			return
		}

		claims, err := mgr.Verify(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextRoles, claims.Roles)
		c.Next()
	}
}

// RequirePermission rejects callers whose roles do not grant the permission
// code. Must run after Auth.
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := RolesFrom(c)
		if !authz.Allow(roles, code) {
			response.Abort(c, errors.ErrPermissionDenied.WithMessagef("requires permission %q", code))
			return
		}
		c.Next()
	}
}

// SubjectFrom returns the authenticated subject, if any.
func SubjectFrom(c *gin.Context) string {
	if v, ok := c.Get(ContextSubject); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RolesFrom returns the authenticated caller's roles, if any.
func RolesFrom(c *gin.Context) []string {
	if v, ok := c.Get(ContextRoles); ok {
		if roles, ok := v.([]string); ok {
			return roles
		}
	}
	return nil
}
