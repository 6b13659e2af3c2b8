package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kyanzach/HGF-Connect-V2-sub001/auth"
	"github.com/kyanzach/HGF-Connect-V2-sub001/config"
)

const (
	ctxMemberID    = "memberID"
	ctxMemberEmail = "memberEmail"
	ctxMemberName  = "memberName"
	ctxMemberRole  = "memberRole"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setIdentity(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxMemberID, claims.MemberID)
	c.Set(ctxMemberEmail, claims.Email)
	c.Set(ctxMemberName, claims.Name)
	c.Set(ctxMemberRole, claims.Role)
}

// AuthMiddleware requires a valid access token.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := auth.ValidateAccessToken(cfg, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token"})
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the member when a valid token is sent and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := auth.ValidateAccessToken(cfg, tokenString); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// CurrentMemberID returns the authenticated member id, or "".
func CurrentMemberID(c *gin.Context) string {
	return c.GetString(ctxMemberID)
}
