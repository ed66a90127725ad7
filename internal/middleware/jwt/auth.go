package jwt

import (
	"strings"

	"Herald/pkg/back"
	"Herald/pkg/util/myjwt"
	"Herald/pkg/xerr"

	"github.com/gin-gonic/gin"
)

const (
	KeyUUID     = "uuid"
	KeyUsername = "username"
	KeyRole     = "role"
)

// Auth resolves the caller from a Bearer header. When allowQuery is set a
// ?token= parameter is accepted too, since browser EventSource and WebSocket
// clients cannot set headers.
func Auth(signer *myjwt.Signer, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		} else if allowQuery {
			tokenString = strings.TrimSpace(c.Query("token"))
		}
		if tokenString == "" {
			back.Abort(c, xerr.Unauthorized, "missing or invalid authorization header")
			return
		}

		claims, err := signer.ParseToken(tokenString)
		if err != nil {
			back.Abort(c, xerr.Unauthorized, "invalid token")
			return
		}

		c.Set(KeyUUID, claims.Uuid)
		c.Set(KeyUsername, claims.Username)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for one of roles. It must run
// after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(KeyRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		back.Abort(c, xerr.Forbidden, "forbidden")
	}
}
