package accounts

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"havenhomes/marketplace-backend/internal/apierr"
)

const (
	ctxUserIDKey   = "auth.user_id"
	ctxUserTypeKey = "auth.user_type"
)

// RequireAuth parses the bearer token and stores the caller identity in the
// request context. Requests without a valid session are rejected with 401.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apierr.Respond(c, apierr.New(apierr.KindUnauthenticated, "authentication required"))
			return
		}

		claims, err := svc.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			apierr.Respond(c, apierr.New(apierr.KindUnauthenticated, "invalid or expired session token"))
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Set(ctxUserTypeKey, claims.UserType)
		c.Next()
	}
}

// RequireAdmin rejects callers whose session does not carry the administrator
// role. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserType(c) != UserTypeAdmin {
			apierr.Respond(c, apierr.New(apierr.KindForbidden, "administrator role required"))
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's id, uuid.Nil if absent.
func CurrentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// CurrentUserType returns the authenticated caller's role, empty if absent.
func CurrentUserType(c *gin.Context) UserType {
	if v, ok := c.Get(ctxUserTypeKey); ok {
		if t, ok := v.(UserType); ok {
			return t
		}
	}
	return ""
}
