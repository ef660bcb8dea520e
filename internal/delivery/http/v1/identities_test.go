package v1

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvillegas/taskmesh/internal/auth"
	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/repository/identity"
	"github.com/jpvillegas/taskmesh/internal/services"
)

func newIdentityTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	identityService := services.NewIdentityService(logger, identity.NewInMemoryRepository())
	guard := auth.NewGuard(testIssuer, []byte(testSigningKey))

	router := gin.New()
	handler := NewIdentityHandler(logger, identityService)
	handler.RegisterRoutes(
		router.Group("/api/v1"),
		AuthMiddleware(logger, guard),
		RequireRole(logger, models.RoleAdmin),
	)
	return router
}

func mintTokenAs(t *testing.T, subject, role string) string {
	t.Helper()
	minter := auth.NewMinter(testIssuer, []byte(testSigningKey), time.Hour)
	token, _, err := minter.Mint(subject, subject+"@example.com", role)
	require.NoError(t, err)
	return token
}

func registerTestIdentity(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()

	w := doRequest(t, router, "", http.MethodPost, "/api/v1/identities", gin.H{
		"name":     "Jordan",
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Registration does not echo the id; validate the fresh
	// credentials to recover it.
	w = doRequest(t, router, "", http.MethodGet,
		"/api/v1/identities/by-email?email="+url.QueryEscape(email)+
			"&password="+url.QueryEscape(password), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var validated struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &validated))
	require.NotEmpty(t, validated.ID)
	return validated.ID
}

func TestIdentityRoutes_RegisterAndValidate(t *testing.T) {
	router := newIdentityTestRouter(t)

	id := registerTestIdentity(t, router, "jordan@example.com", "hunter22")
	assert.NotEmpty(t, id)

	w := doRequest(t, router, "", http.MethodGet,
		"/api/v1/identities/by-email?email=jordan%40example.com&password=wrong-pass", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrInvalidCredentials.Error())
}

func TestIdentityRoutes_DuplicateEmail(t *testing.T) {
	router := newIdentityTestRouter(t)
	registerTestIdentity(t, router, "taken@example.com", "hunter22")

	w := doRequest(t, router, "", http.MethodPost, "/api/v1/identities", gin.H{
		"name":     "Copycat",
		"email":    "taken@example.com",
		"password": "hunter22",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrEmailTaken.Error())
}

func TestIdentityRoutes_Me(t *testing.T) {
	router := newIdentityTestRouter(t)
	id := registerTestIdentity(t, router, "me@example.com", "hunter22")
	token := mintTokenAs(t, id, models.RoleUser)

	w := doRequest(t, router, token, http.MethodGet, "/api/v1/identities/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "me@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)
}

func TestIdentityRoutes_GetByIDNeedsBearerOnly(t *testing.T) {
	router := newIdentityTestRouter(t)
	id := registerTestIdentity(t, router, "target@example.com", "hunter22")

	w := doRequest(t, router, "", http.MethodGet, "/api/v1/identities/"+id, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := mintTokenAs(t, "some-caller", models.RoleUser)
	w = doRequest(t, router, token, http.MethodGet, "/api/v1/identities/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityRoutes_RoleUpdateRequiresAdmin(t *testing.T) {
	router := newIdentityTestRouter(t)
	id := registerTestIdentity(t, router, "promote@example.com", "hunter22")

	userToken := mintTokenAs(t, "plain-caller", models.RoleUser)
	w := doRequest(t, router, userToken, http.MethodPatch, "/api/v1/identities/"+id+"/role", gin.H{
		"role": models.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient role")

	adminToken := mintTokenAs(t, "admin-caller", models.RoleAdmin)
	w = doRequest(t, router, adminToken, http.MethodPatch, "/api/v1/identities/"+id+"/role", gin.H{
		"role": models.RoleAdmin,
	})
	require.Equal(t, http.StatusOK, w.Code)

	callerToken := mintTokenAs(t, "viewer", models.RoleUser)
	w = doRequest(t, router, callerToken, http.MethodGet, "/api/v1/identities/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var promoted identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &promoted))
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestIdentityRoutes_InvalidRoleRejected(t *testing.T) {
	router := newIdentityTestRouter(t)
	id := registerTestIdentity(t, router, "norole@example.com", "hunter22")

	adminToken := mintTokenAs(t, "admin-caller", models.RoleAdmin)
	w := doRequest(t, router, adminToken, http.MethodPatch, "/api/v1/identities/"+id+"/role", gin.H{
		"role": "SUPERUSER",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrInvalidRole.Error())
}

func TestIdentityRoutes_ListPagination(t *testing.T) {
	router := newIdentityTestRouter(t)
	registerTestIdentity(t, router, "one@example.com", "hunter22")
	registerTestIdentity(t, router, "two@example.com", "hunter22")
	registerTestIdentity(t, router, "three@example.com", "hunter22")

	w := doRequest(t, router, "", http.MethodGet, "/api/v1/identities?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Data []identityResponse `json:"data"`
		Meta struct {
			Total      int `json:"total"`
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalPages int `json:"totalPages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Data, 2)
	assert.Equal(t, 3, listed.Meta.Total)
	assert.Equal(t, 2, listed.Meta.TotalPages)
}

func TestIdentityRoutes_AdminDelete(t *testing.T) {
	router := newIdentityTestRouter(t)
	id := registerTestIdentity(t, router, "gone@example.com", "hunter22")

	adminToken := mintTokenAs(t, "admin-caller", models.RoleAdmin)
	w := doRequest(t, router, adminToken, http.MethodDelete, "/api/v1/identities/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, adminToken, http.MethodGet, "/api/v1/identities/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
