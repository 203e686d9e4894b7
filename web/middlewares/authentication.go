package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"ropeaccess.com/crewtrack/security"
	"ropeaccess.com/crewtrack/web/common"
)

const (
	identityKey = "identity"
	cookieName  = "crewtrack.ApplicationCookie"
)

// Authentication checks for a valid Bearer token, falling back to the
// application cookie, and stores the worker identity on the context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(cookieName)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}

			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed authorization header"))
				return
			}

			tokenStr = parts[1]
		}

		identity, err := security.ParseWorkerToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		if identity == nil || identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("insufficient role"))
			return
		}
		c.Next()
	}
}

func Identity(c *gin.Context) *security.WorkerIdentity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*security.WorkerIdentity)
	return identity
}

// WorkerID is the authenticated worker, or "" outside Authentication.
func WorkerID(c *gin.Context) string {
	if identity := Identity(c); identity != nil {
		return identity.WorkerID
	}
	return ""
}
