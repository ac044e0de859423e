package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	// CtxAPIKeyCaller marks requests authenticated with the shared API key.
	CtxAPIKeyCaller = "api_key_caller"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by Middleware when a bearer token was verified
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// Caller names who made the request for access logs: uid:<firebase uid>,
// api-key or anonymous.
func Caller(c *gin.Context) string {
	if uid := UserFirebaseUID(c); uid != "" {
		return "uid:" + uid
	}
	if c.GetBool(CtxAPIKeyCaller) {
		return "api-key"
	}
	return "anonymous"
}
