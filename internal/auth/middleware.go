package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg, "retryable": false})
}

// RequireAdmin lets a request through only when it carries a valid bearer
// token with the admin role. The claims are stored under CtxClaimsKey.
func RequireAdmin(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		if !claims.IsAdmin() {
			deny(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// MustGetClaims returns the claims set by RequireAdmin, or nil on routes
// that are not guarded.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
