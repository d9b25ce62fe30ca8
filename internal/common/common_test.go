package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/theater-billing/internal/common"
)

type errorEnvelope struct {
	Error common.ErrorBody `json:"error"`
}

func TestWriteErrorAppError(t *testing.T) {
	cause := errors.New("unknown type: history")
	appErr := common.NewAppError("UNKNOWN_PLAY_TYPE", "unsupported play type", http.StatusUnprocessableEntity, cause).
		WithDetails(map[string]string{"genre": "history"})
	require.True(t, common.IsAppError(appErr))
	require.ErrorIs(t, appErr, cause)

	rr := httptest.NewRecorder()
	common.WriteError(rr, appErr)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "UNKNOWN_PLAY_TYPE", body.Error.Code)
	require.Equal(t, map[string]any{"genre": "history"}, body.Error.Details)
}

func TestWriteErrorHidesPlainErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("redis: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "redis")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	cases := map[string]string{
		"192.0.2.1:5555":          "192.0.2.1",
		"[2001:db8::1]:443":       "2001:db8::1",
		"[::ffff:192.0.2.9]:8080": "192.0.2.9",
		"203.0.113.9":             "203.0.113.9",
		"pipe":                    "pipe",
	}
	for remote, want := range cases {
		req.RemoteAddr = remote
		require.Equal(t, want, common.ClientIP(req), remote)
	}

	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	require.Equal(t, "192.0.2.1", common.ClientIP(req))
	require.Empty(t, common.ClientIP(nil))
}

func TestPrefersText(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/statements?format=TEXT", nil)
	require.True(t, common.PrefersText(req))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/statements", nil)
	require.False(t, common.PrefersText(req))
	req.Header.Set("Accept", "application/json, text/plain;q=0.5")
	require.True(t, common.PrefersText(req))
	req.Header.Set("Accept", "text/html")
	require.False(t, common.PrefersText(req))
}

func TestDataEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	common.Data(rr, http.StatusOK, []int{1, 2}, map[string]int{"total": 2})
	require.JSONEq(t, `{"data":[1,2],"meta":{"total":2}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.Data(rr, http.StatusOK, "x", nil)
	require.JSONEq(t, `{"data":"x"}`, rr.Body.String())
}

func TestFingerprint(t *testing.T) {
	a, err := common.Fingerprint(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := common.Fingerprint(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	_, err = common.Fingerprint(func() {})
	require.Error(t, err)
}
