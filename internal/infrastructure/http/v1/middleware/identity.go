package middleware

import (
	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	appctx "stocktake/internal/core/context"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Identity middleware extracts the acting user from gateway headers.
// Authentication happens upstream; by the time a request reaches this
// service the gateway has already verified the token and resolved the
// identity into plain headers.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			_ = c.Error(apperror.NewUnauthorized("missing user identity").
				WithDetail("header", HeaderUserID))
			c.Abort()
			return
		}

		user := &appctx.UserContext{
			UserID: userID,
			Name:   c.GetHeader(HeaderUserName),
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", userID)

		c.Next()
	}
}
