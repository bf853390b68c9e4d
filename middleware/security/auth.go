package security

import (
	"net/http"
	"strings"

	toolsec "CarePortal/tools/security"

	"github.com/gin-gonic/gin"
)

// Context key the identity is stored under for downstream handlers.
const CtxIdentityKey = "identity"

type Options struct {
	JWT toolsec.Options
}

// Middleware verifies the bearer token and stashes the identity in the
// request context. Requests without a valid token never reach handlers.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		id, err := toolsec.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

// Identity reads the verified identity set by Middleware.
func Identity(c *gin.Context) *toolsec.Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*toolsec.Identity)
	return id
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
