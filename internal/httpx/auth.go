package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/user"
)

const userKey = "currentUser"

// RequireUser resolves the identity forwarded by the auth front-end
// (X-User-ID) into a buyer record. Unknown ids are rejected.
func RequireUser(users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-ID")
		if id == "" {
			WriteError(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			c.Abort()
			return
		}
		u, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			WriteError(c, http.StatusUnauthorized, CodeUnauthorized, "unknown user")
			c.Abort()
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsAdmin() {
			WriteError(c, http.StatusForbidden, CodeForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}
