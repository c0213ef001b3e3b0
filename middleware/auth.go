package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/auth"
	"github.com/jheiberg/17peppertree/utils"
)

// Context keys set by the auth guards. Exactly one of CtxUser/CtxClient
// is present on an authenticated request.
const (
	CtxUser     = "auth_user"
	CtxClient   = "auth_client"
	CtxAuthType = "auth_type"
)

// Realm roles that grant admin access.
var adminRoles = []string{"admin", "peppertree-admin"}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// AdminRequired admits only interactive user tokens carrying an admin
// realm role.
func AdminRequired(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "No valid authorization token provided")
			c.Abort()
			return
		}

		claims, err := v.VerifyUserToken(token)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		if !claims.HasAnyRole(adminRoles...) {
			utils.JSONError(c, http.StatusForbidden, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Set(CtxUser, claims)
		c.Set(CtxAuthType, "user")
		c.Next()
	}
}

// ClientCredentialsRequired admits only service-account tokens.
func ClientCredentialsRequired(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "No valid authorization token provided")
			c.Abort()
			return
		}

		claims, err := v.VerifyClientToken(token)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Invalid or expired client credentials token")
			c.Abort()
			return
		}

		c.Set(CtxClient, claims)
		c.Set(CtxAuthType, "client")
		c.Next()
	}
}

// UserOrClientRequired accepts either identity: client credentials are
// tried first, then the user-token path. The request context carries
// exactly one of the two claim sets.
func UserOrClientRequired(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "No valid authorization token provided")
			c.Abort()
			return
		}

		if claims, err := v.VerifyClientToken(token); err == nil {
			c.Set(CtxClient, claims)
			c.Set(CtxAuthType, "client")
			c.Next()
			return
		}

		claims, err := v.VerifyUserToken(token)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(CtxUser, claims)
		c.Set(CtxAuthType, "user")
		c.Next()
	}
}

// UserClaims returns the verified user identity attached by a guard.
func UserClaims(c *gin.Context) (*auth.UserClaims, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.UserClaims)
	return claims, ok
}

// ClientClaims returns the verified client identity attached by a guard.
func ClientClaims(c *gin.Context) (*auth.ClientClaims, bool) {
	v, ok := c.Get(CtxClient)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.ClientClaims)
	return claims, ok
}

// ActorEmail identifies the acting admin for audit fields.
func ActorEmail(c *gin.Context) string {
	if claims, ok := UserClaims(c); ok {
		return claims.Email
	}
	return ""
}

// AuthType reports which identity class authenticated the request.
func AuthType(c *gin.Context) string {
	return c.GetString(CtxAuthType)
}
