package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/config"
	"github.com/DoyleJ11/sudokucon-relay/internal/hub"
	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/relay"
	"github.com/DoyleJ11/sudokucon-relay/pkg/types"
)

// ViewURLFunc builds the page URL for a channel as seen by user.
type ViewURLFunc func(channel string, user protocol.UserInfo) string

type api struct {
	hub     *hub.Hub
	viewURL ViewURLFunc
	log     *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// current asks the hub for the active relay. Nil when there is none or the
// hub is gone.
func (a *api) current(ctx context.Context) *relay.Relay {
	reply := make(chan *relay.Relay, 1)
	select {
	case a.hub.Inbox() <- hub.GetRelay{Reply: reply}:
	case <-a.hub.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-a.hub.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (a *api) toView(v relay.View) types.RelayView {
	return types.RelayView{
		RoomID: v.RoomID,
		User: types.User{
			Key:    v.User.Key,
			Name:   v.User.Name,
			Color:  v.User.Color,
			UserID: v.User.UserID,
		},
		Settings: types.Settings{
			SendPointer:  v.Settings.SendPointer,
			ShowPointers: v.Settings.ShowPointers,
		},
		Downstream: types.Channel(v.Downstream),
		Upstream:   types.Channel(v.Upstream),
		ViewURL:    a.viewURL(v.Downstream.Channel, v.User),
	}
}

func (a *api) ConnectRelay(w http.ResponseWriter, r *http.Request) {
	var req types.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user := protocol.UserInfo{
		Key:    req.User.Key,
		Name:   req.User.Name,
		Color:  req.User.Color,
		UserID: req.User.UserID,
	}
	if user.Key == "" {
		user.Key = config.DefaultUserKey
	}
	if user.UserID == "" {
		user.UserID = config.RandomUserID()
	}
	settings := relay.DefaultSettings()
	if req.SendPointer != nil {
		settings.SendPointer = *req.SendPointer
	}
	if req.ShowPointers != nil {
		settings.ShowPointers = *req.ShowPointers
	}

	reply := make(chan hub.ConnectResult, 1)
	select {
	case a.hub.Inbox() <- hub.Connect{RoomID: req.RoomID, User: user, Settings: settings, Reply: reply}:
	case <-a.hub.Done():
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	var res hub.ConnectResult
	select {
	case res = <-reply:
	case <-a.hub.Done():
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	switch {
	case errors.Is(res.Err, relay.ErrMissingIdentity):
		writeError(w, http.StatusBadRequest, res.Err.Error())
		return
	case res.Err != nil:
		writeError(w, http.StatusBadGateway, res.Err.Error())
		return
	}

	v, ok := res.Relay.View(r.Context())
	if !ok {
		writeError(w, http.StatusBadGateway, "relay stopped")
		return
	}
	a.log.Info("relay connected over http", zap.String("room", v.RoomID), zap.String("user_id", v.User.UserID))
	writeJSON(w, http.StatusCreated, a.toView(v))
}

func (a *api) GetRelay(w http.ResponseWriter, r *http.Request) {
	rl := a.current(r.Context())
	if rl == nil {
		writeError(w, http.StatusNotFound, "no active relay")
		return
	}
	v, ok := rl.View(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no active relay")
		return
	}
	writeJSON(w, http.StatusOK, a.toView(v))
}

func (a *api) DeleteRelay(w http.ResponseWriter, r *http.Request) {
	reply := make(chan bool, 1)
	select {
	case a.hub.Inbox() <- hub.DisconnectRelay{Reply: reply}:
	case <-a.hub.Done():
		writeError(w, http.StatusNotFound, "no active relay")
		return
	}
	select {
	case had := <-reply:
		if !had {
			writeError(w, http.StatusNotFound, "no active relay")
			return
		}
	case <-a.hub.Done():
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch types.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rl := a.current(r.Context())
	if rl == nil {
		writeError(w, http.StatusNotFound, "no active relay")
		return
	}
	reply := make(chan relay.Settings, 1)
	if !rl.Post(relay.UpdateSettings{SendPointer: patch.SendPointer, ShowPointers: patch.ShowPointers, Reply: reply}) {
		writeError(w, http.StatusNotFound, "no active relay")
		return
	}
	select {
	case s := <-reply:
		writeJSON(w, http.StatusOK, types.Settings{SendPointer: s.SendPointer, ShowPointers: s.ShowPointers})
	case <-rl.Done():
		writeError(w, http.StatusNotFound, "no active relay")
	case <-r.Context().Done():
	}
}

// post returns a handler that forwards a fixed message to the active relay.
func (a *api) post(msg relay.Msg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := a.current(r.Context())
		if rl == nil || !rl.Post(msg) {
			writeError(w, http.StatusNotFound, "no active relay")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
