package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")
	return c, w
}

func TestSuccessWritesEnvelope(t *testing.T) {
	c, w := newCtx()
	Success(c, http.StatusCreated, gin.H{"id": 1}, "created", Pagination{Total: 1, Limit: 10})

	require.Equal(t, http.StatusCreated, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, float64(1), body["data"].(map[string]any)["id"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
}

func TestErrorDefaultsTo400(t *testing.T) {
	c, w := newCtx()
	res := Error[any](c, 0, "bad", map[string]string{"email": "is required"})

	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"is required"`)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestAbortStopsChain(t *testing.T) {
	c, w := newCtx()
	Abort(c, http.StatusForbidden, "forbidden", nil)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}
