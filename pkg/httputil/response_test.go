package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with correct content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		data := map[string]string{"foo": "bar"}

		WriteJSON(rec, http.StatusOK, data)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var result map[string]string
		err := json.Unmarshal(rec.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.Equal(t, "bar", result["foo"])
	})

	t.Run("handles nil data", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	t.Run("writes a single element array", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteError(rec, http.StatusBadRequest, "REQUIRED_FIELD_MISSING", "Required fields are missing: [LastName]", "LastName")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t,
			`[{"message":"Required fields are missing: [LastName]","errorCode":"REQUIRED_FIELD_MISSING","fields":["LastName"]}]`,
			rec.Body.String())
	})

	t.Run("omits empty fields", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteNotFound(rec, "NOT_FOUND", "The requested resource does not exist")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `[{"message":"The requested resource does not exist","errorCode":"NOT_FOUND"}]`, rec.Body.String())
	})
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteErrors(rec, http.StatusBadRequest, []ErrorItem{
		{Message: "first", ErrorCode: "A"},
		{Message: "second", ErrorCode: "B"},
	})

	var items []ErrorItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Message)
}

func TestWriteOAuthError(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteOAuthError(rec, http.StatusBadRequest, "invalid_grant", "authentication failure")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_grant","error_description":"authentication failure"}`, rec.Body.String())
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{"no content", WriteNoContent, http.StatusNoContent},
		{"created", func(w http.ResponseWriter) { WriteCreated(w, map[string]string{"id": "x"}) }, http.StatusCreated},
		{"ok", func(w http.ResponseWriter) { WriteOK(w, []int{1}) }, http.StatusOK},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "MALFORMED_QUERY", "bad") }, http.StatusBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "INVALID_SESSION_ID", "expired") }, http.StatusUnauthorized},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "UNKNOWN_EXCEPTION", "boom") }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
