package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type stubValidator struct {
	claims map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type observed struct {
	method, path string
	status       int
}

type recordingObserver struct {
	calls []observed
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method: method, path: path, status: status})
}

func guardedRouter(enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{claims: map[string]*models.JWTClaims{
		"admin": {UserID: "u1", Role: models.RoleAdmin},
		"staff": {UserID: "u2", Role: models.RoleStaff},
	}}
	r := gin.New()
	handlers := append(AdminGuard(enabled, validator), func(c *gin.Context) {
		userID := ""
		if claims := Claims(c); claims != nil {
			userID = claims.UserID
		}
		c.JSON(http.StatusOK, gin.H{"user": userID})
	})
	r.POST("/courses", handlers...)
	return r
}

func doPost(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/courses", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAdminGuardDisabledAllowsAnonymous(t *testing.T) {
	w := doPost(guardedRouter(false), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGuardEnabled(t *testing.T) {
	r := guardedRouter(true)

	w := doPost(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = doPost(r, "Token admin")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doPost(r, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doPost(r, "Bearer staff")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = doPost(r, "bearer admin")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"u1"`)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{method: http.MethodGet, path: "/courses/:id", status: http.StatusAccepted}, obs.calls[0])
	assert.Equal(t, "unmatched", obs.calls[1].path)
	assert.Equal(t, http.StatusNotFound, obs.calls[1].status)
}
