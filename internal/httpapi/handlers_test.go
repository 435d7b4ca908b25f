package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/sudokucon-relay/internal/hub"
	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/ws/wstest"
	"github.com/DoyleJ11/sudokucon-relay/pkg/types"
)

const within = time.Second

func channelURL(ch string) string { return "ws://host.test/sudokucon/" + ch }

func viewURL(ch string, u protocol.UserInfo) string {
	return "https://host.test/sudokucon/" + ch + "?hostname=" + u.Name
}

func newServer(t *testing.T) (*httptest.Server, *wstest.Dialer) {
	t.Helper()
	dialer := wstest.NewDialer()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), hub.Options{
		Dialer:     dialer,
		ChannelURL: channelURL,
		Logger:     log,
	})
	srv := httptest.NewServer(SetupRoutes(h, viewURL, log))
	t.Cleanup(func() {
		srv.Close()
		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		<-done
	})
	return srv, dialer
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func connectAnn(t *testing.T, srv *httptest.Server) types.RelayView {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/relay",
		`{"room_id":"room","user":{"name":"ann","color":"#0af","user_id":"42"},"show_pointers":false}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[types.RelayView](t, resp)
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConnectRelay(t *testing.T) {
	srv, dialer := newServer(t)
	v := connectAnn(t, srv)

	assert.Equal(t, "room", v.RoomID)
	assert.Equal(t, types.User{Key: "1", Name: "ann", Color: "#0af", UserID: "42"}, v.User)
	assert.Equal(t, types.Settings{SendPointer: true, ShowPointers: false}, v.Settings)
	assert.Equal(t, "room_42", v.Downstream.Channel)
	assert.True(t, v.Downstream.Open)
	assert.Equal(t, "room", v.Upstream.Channel)
	assert.Equal(t, "https://host.test/sudokucon/room_42?hostname=ann", v.ViewURL)

	require.NotNil(t, dialer.Conn(channelURL("room_42")))
	require.NotNil(t, dialer.Conn(channelURL("room")))
}

func TestConnectRelay_GeneratesUserID(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/relay", `{"room_id":"room","user":{"name":"ann"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	v := decode[types.RelayView](t, resp)
	assert.NotEmpty(t, v.User.UserID)
	assert.Equal(t, "room_"+v.User.UserID, v.Downstream.Channel)
}

func TestConnectRelay_BadRequests(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/relay", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/relay", `{"user":{"name":"ann"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode[types.ErrorResponse](t, resp).Error)
}

func TestGetRelay(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/relay", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	connectAnn(t, srv)
	resp = do(t, http.MethodGet, srv.URL+"/relay", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "room", decode[types.RelayView](t, resp).RoomID)
}

func TestDeleteRelay(t *testing.T) {
	srv, dialer := newServer(t)
	connectAnn(t, srv)
	up := dialer.Conn(channelURL("room"))

	resp := do(t, http.MethodDelete, srv.URL+"/relay", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	select {
	case <-up.Closed():
	case <-time.After(within):
		t.Fatal("upstream not closed")
	}

	resp = do(t, http.MethodDelete, srv.URL+"/relay", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchSettings(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodPatch, srv.URL+"/relay/settings", `{"send_pointer":false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	connectAnn(t, srv)
	resp = do(t, http.MethodPatch, srv.URL+"/relay/settings", `{"send_pointer":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.Settings{SendPointer: false, ShowPointers: false}, decode[types.Settings](t, resp))

	resp = do(t, http.MethodPatch, srv.URL+"/relay/settings", `nope`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReady_RequestsSync(t *testing.T) {
	srv, dialer := newServer(t)
	connectAnn(t, srv)
	up := dialer.Conn(channelURL("room"))
	up.Next(t, within) // cloneview

	resp := do(t, http.MethodPost, srv.URL+"/relay/ready", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	frame := up.Next(t, within)
	assert.Equal(t, "act", gjson.GetBytes(frame, "cmd").String())
	assert.Equal(t, "sl:", gjson.GetBytes(frame, "act").String())
	assert.Equal(t, int64(0), gjson.GetBytes(frame, "seq").Int())
}

func TestMark_WithoutRelay(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/relay/mark", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
