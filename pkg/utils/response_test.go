package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "email already registered")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"email already registered"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Text string `json:"text"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "hi", body.Text)

	for _, raw := range []string{"", "{", "[1,2]", "text=hi"} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		assert.ErrorIs(t, DecodeJSON(req, &body), ErrInvalidBody, raw)
	}
}
