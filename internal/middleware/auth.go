package middleware

import (
	"net/http"
	"strings"

	"learnhub/config"
	"learnhub/internal/auth"
	"learnhub/internal/domain"

	"github.com/gin-gonic/gin"
)

// Keys under which AuthRequired stores the caller's identity in the gin context.
const (
	ctxUserID = "learnhub.user_id"
	ctxRole   = "learnhub.role"
)

var knownRoles = map[string]bool{
	domain.RoleAdmin:     true,
	domain.RoleParent:    true,
	domain.RoleTeacher:   true,
	domain.RoleAffiliate: true,
}

// AuthRequired accepts only "Bearer <access token>" and stores the token's user and role.
// Tokens carrying a role learnhub does not know are refused.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed bearer token"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil || claims.UserID == 0 || !knownRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole lets the request through when the caller holds one of roles. It must run after
// AuthRequired; a missing identity is 401, a wrong role 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden for role " + role})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user, or 0 outside AuthRequired.
func GetUserID(c *gin.Context) uint {
	id, _ := c.Get(ctxUserID)
	v, _ := id.(uint)
	return v
}

// GetRole returns the authenticated role, or "" outside AuthRequired.
func GetRole(c *gin.Context) string {
	role, _ := c.Get(ctxRole)
	v, _ := role.(string)
	return v
}
