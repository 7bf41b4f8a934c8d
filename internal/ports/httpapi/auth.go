package httpapi

import (
	"net/http"
	"strings"

	"fillblank/internal/app"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// authenticate accepts a player token from the Authorization header, or from
// the token query parameter for websockets. The token must belong to the
// lobby in the path and its user must not have left.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "A player token is required."})
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.Debug("HTTP: Rejected token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "The player token is not valid."})
			return
		}
		code := c.Param("code")
		if claims.Lobby != code {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "message": "The token is for another lobby."})
			return
		}
		member, err := s.lobbies.Member(c.Request.Context(), code, claims.Subject)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !member {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "message": "Join the lobby first."})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsOf(c *gin.Context) *app.PlayerClaims {
	return c.MustGet(claimsKey).(*app.PlayerClaims)
}

func userID(c *gin.Context) string {
	return claimsOf(c).Subject
}
