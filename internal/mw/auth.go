package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

const identityKey = "identity"

// Claims is the access-token payload. The scope attributes mirror what the
// access-scoping engine needs: institute/department for lab managers, labId
// for trainers.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Role       string `json:"role"`
	Institute  string `json:"institute,omitempty"`
	Department string `json:"department,omitempty"`
	LabID      string `json:"labId,omitempty"`
}

// Auth verifies the Bearer token and stores the derived Identity on the
// request context. The identity is rebuilt per request and never cached.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(identityKey, scope.Identity{
			UserID:     claims.Subject,
			Email:      claims.Email,
			Role:       model.Role(claims.Role),
			Institute:  claims.Institute,
			Department: claims.Department,
			LabID:      claims.LabID,
		})
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by Auth.
func IdentityFrom(c *gin.Context) (scope.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return scope.Identity{}, false
	}
	id, ok := v.(scope.Identity)
	return id, ok
}

// RequireRoles rejects requests whose identity is not one of the given roles.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}
