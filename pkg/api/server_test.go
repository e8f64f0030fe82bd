package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognichoir/pkg/apikey"
	"cognichoir/pkg/chat"
	"cognichoir/pkg/config"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	sys := config.DefaultSystemConfig()
	sys.DataDir = dir

	keys := apikey.NewManagerWithFallback(dir)
	serverKeys := apikey.NewServerKeyManager(keys, dir)
	secret, err := serverKeys.AddKey("test-client")
	require.NoError(t, err)

	rooms, err := chat.NewManager(sys, keys)
	require.NoError(t, err)

	return NewServer(ServerConfig{Port: 0}, rooms, serverKeys), secret
}

func doRequest(s *Server, handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.auth(handler)(w, r)
	return w
}

func TestAuth_MissingKey(t *testing.T) {
	s, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/hello", nil)
	w := doRequest(s, s.handleHello, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAuth_InvalidKey(t *testing.T) {
	s, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/hello", nil)
	r.Header.Set("CcApiKey", "not-a-real-key")
	w := doRequest(s, s.handleHello, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestAuth_ValidKeyViaHeaderAndQuery(t *testing.T) {
	s, secret := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/hello", nil)
	r.Header.Set("CcApiKey", secret)
	w := doRequest(s, s.handleHello, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello, authenticated user!")

	r = httptest.NewRequest(http.MethodGet, "/ws?ccapikey="+secret, nil)
	w = doRequest(s, s.handleHello, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRooms(t *testing.T) {
	s, secret := newTestServer(t)
	_, err := s.rooms.Create("lounge")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	r.Header.Set("CcApiKey", secret)
	w := doRequest(s, s.handleListRooms, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lounge")
}

func TestGetMessages_UnknownRoom(t *testing.T) {
	s, secret := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/rooms/ghost/messages", nil)
	r.Header.Set("CcApiKey", secret)
	r.SetPathValue("name", "ghost")
	w := doRequest(s, s.handleGetMessages, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessage_AppendsToTranscript(t *testing.T) {
	s, secret := newTestServer(t)
	room, err := s.rooms.Create("lounge")
	require.NoError(t, err)

	body := strings.NewReader(`{"sender":"User","content":"posted over http"}`)
	r := httptest.NewRequest(http.MethodPost, "/rooms/lounge/messages", body)
	r.Header.Set("CcApiKey", secret)
	r.SetPathValue("name", "lounge")
	w := doRequest(s, s.handlePostMessage, r)

	assert.Equal(t, http.StatusCreated, w.Code)

	msgs := room.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "User", msgs[0].Sender)
	assert.Equal(t, "posted over http", msgs[0].Content)
}

func TestPostMessage_RejectsIncompleteBody(t *testing.T) {
	s, secret := newTestServer(t)
	_, err := s.rooms.Create("lounge")
	require.NoError(t, err)

	for _, payload := range []string{`{}`, `{"sender":"User"}`, `not json`} {
		r := httptest.NewRequest(http.MethodPost, "/rooms/lounge/messages", strings.NewReader(payload))
		r.Header.Set("CcApiKey", secret)
		r.SetPathValue("name", "lounge")
		w := doRequest(s, s.handlePostMessage, r)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %q", payload)
	}
}

func TestGenerate_UnknownBot(t *testing.T) {
	s, secret := newTestServer(t)
	_, err := s.rooms.Create("lounge")
	require.NoError(t, err)

	body := strings.NewReader(`{"role_name":"Nobody"}`)
	r := httptest.NewRequest(http.MethodPost, "/rooms/lounge/generate", body)
	r.Header.Set("CcApiKey", secret)
	r.SetPathValue("name", "lounge")
	w := doRequest(s, s.handleGenerate, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
