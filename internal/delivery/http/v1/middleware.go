package v1

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/auth"
)

const authCtxKey = "auth_context"

// AuthMiddleware gates a route group behind the token guard. It stores
// the authorized context on the request so handlers can read the
// caller's identity and propagate the raw token downstream.
func AuthMiddleware(logger zerolog.Logger, guard auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx, err := guard.Authorize(c.GetHeader("Authorization"))
		if err != nil {
			logger.Error().
				Err(err).
				Str("path", c.Request.URL.Path).
				Msg("rejected request")
			if errors.Is(err, auth.ErrMalformedCredentials) {
				abort(c, newUnauthorizedError(auth.ErrMalformedCredentials.Error()))
			} else {
				abort(c, newUnauthorizedError(auth.ErrInvalidToken.Error()))
			}
			return
		}

		c.Set(authCtxKey, authCtx)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(logger zerolog.Logger, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx, ok := authContext(c)
		if !ok {
			abort(c, newUnauthorizedError(auth.ErrMalformedCredentials.Error()))
			return
		}
		if authCtx.Role != role {
			logger.Warn().
				Str("subject", authCtx.Subject).
				Str("role", authCtx.Role).
				Str("required", role).
				Msg("insufficient role")
			abort(c, newForbiddenError("insufficient role"))
			return
		}
		c.Next()
	}
}

func authContext(c *gin.Context) (*auth.Context, bool) {
	value, exists := c.Get(authCtxKey)
	if !exists {
		return nil, false
	}
	authCtx, ok := value.(*auth.Context)
	return authCtx, ok
}
