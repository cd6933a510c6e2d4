package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"accessctl/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, mode string, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(mode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	r := gin.New()
	r.GET("/x", handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", errors.Validation("参数错误"), http.StatusBadRequest},
		{"not found", errors.NotFound("角色不存在"), http.StatusNotFound},
		{"conflict", errors.Conflict("角色仍有关联用户"), http.StatusConflict},
		{"no roles", errors.New(errors.KindNoRolesAssigned, "用户未分配任何角色"), http.StatusForbidden},
		{"invalid credentials", errors.New(errors.KindInvalidCredentials, "用户名或密码错误"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, gin.TestMode, func(c *gin.Context) { HandleError(c, tt.err) })
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status, body.Code)
			assert.Equal(t, errors.MessageOf(tt.err), body.Message)
			assert.Empty(t, body.Error)
		})
	}
}

func TestHandleErrorHidesInternalDetailOutsideDebug(t *testing.T) {
	cause := stderrors.New("pq: relation does not exist")

	w, body := serve(t, gin.ReleaseMode, func(c *gin.Context) { HandleError(c, cause) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "服务器内部错误", body.Message)
	assert.Empty(t, body.Error)

	_, body = serve(t, gin.DebugMode, func(c *gin.Context) { HandleError(c, cause) })
	assert.Equal(t, cause.Error(), body.Error)
}
