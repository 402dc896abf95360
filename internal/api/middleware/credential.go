package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const credentialContextKey = "credential"

// CredentialMiddleware extracts the bearer credential from the Authorization
// header into the request context. Absence is represented as an empty
// credential rather than rejected here, so the service layer owns the
// authentication-missing decision uniformly for every entry point.
func CredentialMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := ""
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			credential = strings.TrimSpace(token)
		}
		c.Set(credentialContextKey, credential)
		c.Next()
	}
}

// CredentialFromContext returns the bearer credential for the request,
// or the empty string when none was supplied
func CredentialFromContext(c *gin.Context) string {
	if value, ok := c.Get(credentialContextKey); ok {
		if credential, ok := value.(string); ok {
			return credential
		}
	}
	return ""
}
