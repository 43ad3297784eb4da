package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/pkg/config"
	"retail-service/pkg/jwtutil"
	"retail-service/pkg/logger"
)

func run(t *testing.T, header string) (string, bool, int) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var name string
	var ok bool
	handler := RequestIDMiddleware(IdentityMiddleware(func(c echo.Context) error {
		name, ok = CashierFromContext(c)
		return c.NoContent(http.StatusNoContent)
	}))
	require.NoError(t, handler(c))
	assert.NotEmpty(t, rec.Header().Get(logger.RequestIDKey))
	return name, ok, rec.Code
}

func TestIdentityMiddleware(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "k", ExpirationHours: 1})
	token, err := jwtutil.GenerateToken("Ana", "cashier")
	require.NoError(t, err)

	name, ok, code := run(t, "Bearer "+token)
	assert.True(t, ok)
	assert.Equal(t, "Ana", name)
	assert.Equal(t, http.StatusNoContent, code)

	for _, header := range []string{"", "Bearer not-a-token", "Basic abc"} {
		_, ok, code := run(t, header)
		assert.False(t, ok, header)
		assert.Equal(t, http.StatusNoContent, code, header)
	}
}

func TestRequestIDMiddleware_KeepsClientID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIDKey, "client-id")
	rec := httptest.NewRecorder()

	handler := RequestIDMiddleware(func(c echo.Context) error { return nil })
	require.NoError(t, handler(e.NewContext(req, rec)))

	assert.Equal(t, "client-id", rec.Header().Get(logger.RequestIDKey))
}
