package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/services"
)

type AuthHandler struct {
	logger zerolog.Logger
	auth   services.AuthService
}

func NewAuthHandler(logger zerolog.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		auth:   authService,
	}
}

func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	authRouter := router.Group("/auth")
	authRouter.POST("/login", h.HandleLogin)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=255"`
}

func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req loginRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	result, err := h.auth.Login(c, services.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			abort(c, newUnauthorizedError(services.ErrInvalidCredentials.Error()))
			return
		}

		h.logger.Error().
			Err(err).
			Msg("login failed")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken})
}
