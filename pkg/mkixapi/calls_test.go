package mkixapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*mkixapi.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Account:   "1001",
		ServerURL: server.URL,
		Token:     "tok",
		SSLCheck:  true,
	}
	return mkixapi.New(cfg), server
}

func TestLoginInfoNormalizesProfile(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/user/profile/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uuid":     "u1",
			"username": "bot",
		})
	})

	got, err := client.LoginInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, "bot", got["nickname"])
}

func TestGroupBanSendsDurationUnconverted(t *testing.T) {
	var gotBody map[string]int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/group/g1/members/u1/ban", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	err := client.GroupBan(context.Background(), "g1", "u1", 600)
	require.NoError(t, err)
	assert.Equal(t, 600, gotBody["duration"])
}

func TestDecodeClassifiesServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.LoginInfo(context.Background())
	assert.Error(t, err)
}
