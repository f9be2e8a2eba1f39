package rangeq

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wyfcoding/beats/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
	Detail string          `json:"detail"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewStore(config.TreeConfig{MaxTrees: 8, MaxLength: 1024},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	engine := gin.New()
	NewHandler(store).Register(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decodeValue(t *testing.T, env envelope) ValueResponse {
	t.Helper()
	var v ValueResponse
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHandlerScenario(t *testing.T) {
	srv := newTestServer(t)

	code, _ := call(t, srv, http.MethodPost, "/v1/trees", map[string]any{"name": "t", "values": []int64{1, 2, 3, 4, 5}})
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(t, srv, http.MethodPost, "/v1/trees/t/add", map[string]any{"l": 1, "r": 4, "delta": -3})
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, srv, http.MethodPost, "/v1/trees/t/add", map[string]any{"l": 0, "r": 5, "delta": 2})
	require.Equal(t, http.StatusOK, code)

	code, env := call(t, srv, http.MethodGet, "/v1/trees/t/max?l=0&r=5", nil)
	require.Equal(t, http.StatusOK, code)
	v := decodeValue(t, env)
	require.NotNil(t, v.Value)
	assert.Equal(t, int64(7), *v.Value)
	assert.False(t, v.Empty)

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/historic-sum?l=0&r=5", nil)
	assert.Equal(t, int64(19), *decodeValue(t, env).Value)

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/historic-max?l=1&r=3", nil)
	assert.Equal(t, int64(3), *decodeValue(t, env).Value)

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/snapshot", nil)
	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, []int64{3, 1, 2, 3, 7}, snap.Current)
	assert.Equal(t, []int64{3, 2, 3, 4, 7}, snap.Historic)

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/stats", nil)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.InDelta(t, 2, stats["adds"], 0)
	assert.InDelta(t, 8, stats["padded_size"], 0)

	_, env = call(t, srv, http.MethodGet, "/v1/trees", nil)
	assert.JSONEq(t, `{"names":["t"]}`, string(env.Data))

	code, _ = call(t, srv, http.MethodDelete, "/v1/trees/t", nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestHandlerEmptyRange(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/v1/trees", map[string]any{"name": "t", "values": []int64{4}})

	_, env := call(t, srv, http.MethodGet, "/v1/trees/t/max?l=1&r=1", nil)
	assert.JSONEq(t, `{"value":null,"empty":true}`, string(env.Data))

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/historic-max?l=0&r=0", nil)
	assert.JSONEq(t, `{"value":null,"empty":true}`, string(env.Data))

	_, env = call(t, srv, http.MethodGet, "/v1/trees/t/historic-sum?l=0&r=0", nil)
	assert.JSONEq(t, `{"value":0,"empty":true}`, string(env.Data))
}

func TestHandlerErrors(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/v1/trees", map[string]any{"name": "t", "values": []int64{1, 2, 3}})

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantHTTP int
		wantCode int
	}{
		{"duplicate", http.MethodPost, "/v1/trees", map[string]any{"name": "t", "values": []int64{}}, http.StatusConflict, 409101},
		{"missing name", http.MethodPost, "/v1/trees", map[string]any{"values": []int64{1}}, http.StatusBadRequest, 400002},
		{"unknown tree", http.MethodGet, "/v1/trees/nope/max?l=0&r=1", nil, http.StatusNotFound, 404101},
		{"inverted range", http.MethodGet, "/v1/trees/t/max?l=2&r=1", nil, http.StatusBadRequest, 400101},
		{"out of bounds", http.MethodPost, "/v1/trees/t/add", map[string]any{"l": 0, "r": 9, "delta": 1}, http.StatusBadRequest, 400101},
		{"missing r", http.MethodGet, "/v1/trees/t/historic-sum?l=0", nil, http.StatusBadRequest, 400002},
		{"negative l", http.MethodGet, "/v1/trees/t/historic-max?l=-1&r=2", nil, http.StatusBadRequest, 400002},
		{"missing delta bounds", http.MethodPost, "/v1/trees/t/add", map[string]any{"delta": 1}, http.StatusBadRequest, 400002},
		{"delete unknown", http.MethodDelete, "/v1/trees/nope", nil, http.StatusNotFound, 404101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantHTTP, code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}
