package bootstrap

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"sales-arena/shared/config"
	"sales-arena/shared/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRuntime(t *testing.T) (*Runtime, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = client.Close() })

	return &Runtime{
		Config:  &config.Config{},
		Logger:  zaptest.NewLogger(t),
		Redis:   client,
		service: "test",
	}, mr
}

func TestHealth(t *testing.T) {
	rt, mr := newTestRuntime(t)
	app := rt.NewApp("test")

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	mr.Close()
	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "test", body["service"])
}

func TestSwaggerDocument(t *testing.T) {
	rt, _ := newTestRuntime(t)
	app := rt.NewApp("test")

	resp, err := app.Test(httptest.NewRequest("GET", "/swagger/doc.json", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Contains(t, doc.Paths, "/sales")
	assert.Contains(t, doc.Paths["/gamify/goals/simulate"], "post")
}
