package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeclean/internal/domain"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret []byte, sub, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Sub:              sub,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(testSecret, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": string(actor.Role)})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid customer", header: "Bearer " + signToken(t, testSecret, "u1", "customer", time.Hour), wantStatus: http.StatusOK},
		{name: "valid cleaner", header: "Bearer " + signToken(t, testSecret, "u2", "cleaner", time.Hour), wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, []byte("other"), "u1", "customer", time.Hour), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, "u1", "customer", -time.Minute), wantStatus: http.StatusUnauthorized},
		{name: "unknown role", header: "Bearer " + signToken(t, testSecret, "u1", "admin", time.Hour), wantStatus: http.StatusUnauthorized},
		{name: "missing subject", header: "Bearer " + signToken(t, testSecret, "", "customer", time.Hour), wantStatus: http.StatusUnauthorized},
	}

	r := protectedRouter()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestParseToken_ReturnsActor(t *testing.T) {
	actor, err := ParseToken(signToken(t, testSecret, "cleaner-7", "cleaner", time.Hour), testSecret)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "cleaner-7", Role: domain.RoleCleaner}, actor)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{Sub: "u1", Role: "customer"}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestRequireInternalKey(t *testing.T) {
	r := gin.New()
	r.POST("/internal", RequireInternalKey("s3cret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for key, want := range map[string]int{"s3cret": http.StatusNoContent, "wrong": http.StatusUnauthorized, "": http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		if key != "" {
			req.Header.Set(internalKeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "key %q", key)
	}

	open := gin.New()
	open.POST("/internal", RequireInternalKey(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	w := httptest.NewRecorder()
	open.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "an unset key must not open the route")
}
