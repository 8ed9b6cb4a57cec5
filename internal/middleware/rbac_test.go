package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/andesedu/cursos-api/internal/models"
)

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/courses/1", nil)

	RequireRoles(models.UserRoleAdmin)(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.True(t, c.IsAborted())
}

func TestRequireRolesRejectsStaffOnAdminRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/courses/1", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: 2, Role: models.UserRoleStaff})

	RequireRoles(models.UserRoleAdmin)(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.True(t, c.IsAborted())
}

func TestRequireRolesAllowsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/courses/1", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: 1, Role: models.UserRoleAdmin})

	RequireRoles(models.UserRoleAdmin)(c)
	require.False(t, c.IsAborted())
}
