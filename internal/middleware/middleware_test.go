package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/middleware"
	"arqueo-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"
	testUser   = "0b7c1f7e-3d7a-4d55-9a43-0d6f3b8c9a11"
)

func signed(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop(), false))
	router.Use(middleware.AuthMiddleware(testSecret))
	router.GET("/test", func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": userID})
	})
	return router
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	var env models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	router := authRouter()

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "missing authorization header", env.Message)
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"malformed":    "Bearer invalid-token",
		"wrong scheme": "Token " + signed(t, jwt.MapClaims{"sub": testUser}, testSecret),
		"wrong secret": "Bearer " + signed(t, jwt.MapClaims{"sub": testUser}, "another-secret"),
		"expired":      "Bearer " + signed(t, jwt.MapClaims{"sub": testUser, "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
		"missing sub":  "Bearer " + signed(t, jwt.MapClaims{"role": "authenticated"}, testSecret),
		"non uuid sub": "Bearer " + signed(t, jwt.MapClaims{"sub": "user-123"}, testSecret),
	}
	router := authRouter()
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := authRouter()
	token := signed(t, jwt.MapClaims{"sub": testUser, "exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testUser)
}

func errorRouter(exposeDetail bool, err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop(), exposeDetail))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(err)
	})
	return router
}

func TestErrorHandler_StatusAndEnvelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("name is required", map[string]string{"name": "required"}), http.StatusBadRequest},
		{apperr.NotFound("site not found"), http.StatusNotFound},
		{apperr.Conflict("duplicate"), http.StatusConflict},
		{apperr.ContextRequired("select a site"), http.StatusPreconditionFailed},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/fail", nil)
		errorRouter(false, tc.err).ServeHTTP(w, req)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Message)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/fail", nil)
	errorRouter(false, apperr.Validation("invalid", map[string]string{"name": "required"})).ServeHTTP(w, req)
	assert.Equal(t, map[string]string{"name": "required"}, decodeEnvelope(t, w).Errors)
}

func TestErrorHandler_DetailOnlyOutsideProduction(t *testing.T) {
	cause := apperr.Persistence("database error", errors.New("relation \"sites\" does not exist"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/fail", nil)
	errorRouter(true, cause).ServeHTTP(w, req)
	assert.Contains(t, decodeEnvelope(t, w).Detail, "does not exist")

	w = httptest.NewRecorder()
	errorRouter(false, cause).ServeHTTP(w, req)
	env := decodeEnvelope(t, w)
	assert.Empty(t, env.Detail)
	assert.Equal(t, "database error", env.Message)
}

type staticContext struct {
	machine *activecontext.Machine
}

func (s staticContext) Current(context.Context, string) (*activecontext.Machine, error) {
	return s.machine, nil
}

func guardRouter(m *activecontext.Machine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop(), false))
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUser)
		c.Next()
	})
	router.Use(middleware.RequireFullContext(staticContext{machine: m}))
	router.GET("/tools", func(c *gin.Context) {
		triple, err := middleware.ActiveContext(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, triple)
	})
	return router
}

func TestRequireFullContext(t *testing.T) {
	ctx := context.Background()
	m := activecontext.NewMachine(testUser, activecontext.NewMemoryStore(), zap.NewNop())
	router := guardRouter(m)

	require.NoError(t, m.SelectProject(ctx, "p1"))
	require.NoError(t, m.SelectArea(ctx, "a1"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tools", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	require.NoError(t, m.SelectSite(ctx, "s1"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var got activecontext.Triple
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, activecontext.Triple{Project: "p1", Area: "a1", Site: "s1"}, got)
}
