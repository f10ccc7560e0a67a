package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/models"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	util.SilenceLogger()
}

// newTestRouter wires routes with a real auth service. Service-backed routes
// are only exercised up to the point the middleware or path parsing stops
// them, so the services stay nil.
func newTestRouter() (*gin.Engine, *auth.Service) {
	authSvc := auth.NewService("test-secret", time.Hour)
	handler := NewHandler(nil, nil, nil, nil, nil, authSvc, 5)
	router := gin.New()
	handler.SetupRoutes(router)
	return router, authSvc
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter()

	for _, path := range []string{"/health", "/ready"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "status")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	router, authSvc := newTestRouter()

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/offers", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/offers", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("forged token", func(t *testing.T) {
		forged, err := auth.NewService("other-secret", time.Hour).
			GenerateToken(&models.User{ID: 1, Role: models.RoleSeller})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/offers", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token passes the middleware", func(t *testing.T) {
		token, err := authSvc.GenerateToken(&models.User{ID: 1, Role: models.RoleBuyer})
		require.NoError(t, err)

		// A bad path id stops the request right after auth, so the nil
		// services are never touched.
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		writeError(c, &service.Error{
			Kind: service.KindNotFound, Status: http.StatusNotFound, Message: "Offer not found",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Offer not found", body["error"])
	})

	t.Run("extra fields pass through", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		writeError(c, &service.Error{
			Kind:   service.KindInvalidInput,
			Status: http.StatusBadRequest,
			Fields: map[string]interface{}{
				"warning":       "Your offer is very low and unlikely to be accepted",
				"suggested_min": 70.0,
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 70.0, body["suggested_min"])
		assert.NotContains(t, body, "error")
	})

	t.Run("unclassified errors stay generic", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		writeError(c, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
