package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/services"
)

type IdentityHandler struct {
	logger     zerolog.Logger
	identities services.IdentityService
}

func NewIdentityHandler(logger zerolog.Logger, identityService services.IdentityService) *IdentityHandler {
	return &IdentityHandler{
		logger:     logger,
		identities: identityService,
	}
}

// RegisterRoutes mounts the identity surface. Registration and
// credential validation are open (the auth service calls by-email
// before any token exists); the by-id lookup needs any valid bearer;
// management of arbitrary identities needs the ADMIN role.
func (h *IdentityHandler) RegisterRoutes(router gin.IRouter, authorize, requireAdmin gin.HandlerFunc) {
	identitiesRouter := router.Group("/identities")
	identitiesRouter.POST("", h.HandleRegister)
	identitiesRouter.GET("", h.HandleListIdentities)
	identitiesRouter.GET("/by-email", h.HandleValidateByEmail)

	identitiesRouter.GET("/me", authorize, h.HandleGetMe)
	identitiesRouter.PATCH("/me", authorize, h.HandleUpdateMe)

	identitiesRouter.GET("/:id", authorize, h.HandleGetIdentity)
	identitiesRouter.PATCH("/:id", authorize, requireAdmin, h.HandleUpdateIdentity)
	identitiesRouter.DELETE("/:id", authorize, requireAdmin, h.HandleDeleteIdentity)
	identitiesRouter.PATCH("/:id/role", authorize, requireAdmin, h.HandleUpdateRole)
}

type identityResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newIdentityResponse(identity *models.Identity) identityResponse {
	return identityResponse{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
		Role:  identity.Role,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

func (h *IdentityHandler) HandleRegister(c *gin.Context) {
	var req registerRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	_, err = h.identities.Register(c, services.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "identity created"})
}

func (h *IdentityHandler) HandleListIdentities(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.identities.ListIdentities(c, page, limit)
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	data := make([]identityResponse, len(result.Identities))
	for i, identity := range result.Identities {
		data[i] = newIdentityResponse(identity)
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"total":      result.Total,
			"page":       result.Page,
			"limit":      result.Limit,
			"totalPages": result.TotalPages,
		},
	})
}

// HandleValidateByEmail implements the contract the auth service
// consumes: credentials in, minimal projection out.
func (h *IdentityHandler) HandleValidateByEmail(c *gin.Context) {
	email := c.Query("email")
	password := c.Query("password")
	if email == "" || password == "" {
		abort(c, newBadRequestError("email and password are required"))
		return
	}

	identity, err := h.identities.ValidateCredentials(c, email, password)
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    identity.ID,
		"email": identity.Email,
		"role":  identity.Role,
	})
}

func (h *IdentityHandler) HandleGetMe(c *gin.Context) {
	authCtx, ok := authContext(c)
	if !ok {
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	identity, err := h.identities.GetIdentityByID(c, authCtx.Subject)
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, newIdentityResponse(identity))
}

type updateIdentityRequest struct {
	Name     *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" binding:"omitempty,min=6,max=255"`
}

func (h *IdentityHandler) HandleUpdateMe(c *gin.Context) {
	authCtx, ok := authContext(c)
	if !ok {
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	h.updateIdentity(c, authCtx.Subject)
}

func (h *IdentityHandler) HandleGetIdentity(c *gin.Context) {
	identity, err := h.identities.GetIdentityByID(c, c.Param("id"))
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, newIdentityResponse(identity))
}

func (h *IdentityHandler) HandleUpdateIdentity(c *gin.Context) {
	h.updateIdentity(c, c.Param("id"))
}

func (h *IdentityHandler) updateIdentity(c *gin.Context, id string) {
	var req updateIdentityRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	identity, err := h.identities.UpdateIdentity(c, services.UpdateIdentityParams{
		ID:       id,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "identity updated",
		"user":    newIdentityResponse(identity),
	})
}

func (h *IdentityHandler) HandleDeleteIdentity(c *gin.Context) {
	id := c.Param("id")
	err := h.identities.DeleteIdentity(c, id)
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "identity " + id + " deleted"})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *IdentityHandler) HandleUpdateRole(c *gin.Context) {
	var req updateRoleRequest
	err := c.ShouldBindJSON(&req)
	if err != nil || req.Role == "" {
		abort(c, newBadRequestError(services.ErrInvalidRole.Error()))
		return
	}

	identity, err := h.identities.UpdateIdentityRole(c, c.Param("id"), req.Role)
	if err != nil {
		h.abortWithIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "role updated to " + identity.Role,
	})
}

func (h *IdentityHandler) abortWithIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrIdentityNotFound):
		abort(c, newNotFoundError(services.ErrIdentityNotFound.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		abort(c, newBadRequestError(services.ErrInvalidCredentials.Error()))
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidRole):
		abort(c, newBadRequestError(err.Error()))
	default:
		h.logger.Error().
			Err(err).
			Msg("identity operation failed")
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
