// Package api exposes the REST surface: accounts, group rosters,
// message history and search. The live path lives in transport; here
// everything is plain request/response JSON.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"converse/auth"
	"converse/contract"
	"converse/errors"
	"converse/services"
)

const maxBodyBytes = 1 << 20 // request bodies, avatar uploads included

type API struct {
	log      *slog.Logger
	validate *validator.Validate
	auth     services.IAuthService
	users    services.IUserService
	groups   services.IGroupService
	chat     services.IChatService
	registry contract.IRegistry
}

func New(
	log *slog.Logger,
	authService services.IAuthService,
	users services.IUserService,
	groups services.IGroupService,
	chat services.IChatService,
	registry contract.IRegistry,
) *API {
	return &API{
		log:      log,
		validate: validator.New(),
		auth:     authService,
		users:    users,
		groups:   groups,
		chat:     chat,
		registry: registry,
	}
}

// Router wires all REST routes. sessionHandler, when non-nil, serves
// the websocket upgrade on /ws with its own token handling.
func (a *API) Router(sessionHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/auth/register", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/login", a.handleLogin).Methods(http.MethodPost)

	if sessionHandler != nil {
		r.Handle("/ws", sessionHandler)
	}

	protected := r.PathPrefix("/v1").Subrouter()
	protected.Use(auth.Middleware)

	protected.HandleFunc("/users/me", a.handleUpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/users/me/avatar", a.handleUploadAvatar).Methods(http.MethodPost)
	protected.HandleFunc("/users/{username}", a.handleGetProfile).Methods(http.MethodGet)

	protected.HandleFunc("/groups", a.handleCreateGroup).Methods(http.MethodPost)
	protected.HandleFunc("/groups", a.handleListGroups).Methods(http.MethodGet)
	protected.HandleFunc("/groups/{id}", a.handleGetGroup).Methods(http.MethodGet)
	protected.HandleFunc("/groups/{id}", a.handleDeleteGroup).Methods(http.MethodDelete)
	protected.HandleFunc("/groups/{id}/members", a.handleAddMember).Methods(http.MethodPost)
	protected.HandleFunc("/groups/{id}/members/{username}", a.handleRemoveMember).Methods(http.MethodDelete)
	protected.HandleFunc("/groups/{id}/admins", a.handlePromoteAdmin).Methods(http.MethodPost)

	protected.HandleFunc("/messages/direct/{peer}", a.handleDirectHistory).Methods(http.MethodGet)
	protected.HandleFunc("/messages/group/{id}", a.handleGroupHistory).Methods(http.MethodGet)
	protected.HandleFunc("/messages/unread", a.handleUnread).Methods(http.MethodGet)
	protected.HandleFunc("/messages/read", a.handleMarkRead).Methods(http.MethodPost)

	protected.HandleFunc("/online", a.handleOnlineUsers).Methods(http.MethodGet)
	protected.HandleFunc("/search", a.handleSearch).Methods(http.MethodGet)

	return r
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Error("response encoding failed", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "error", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads, unmarshals and struct-validates a JSON body.
func (a *API) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return false
	}
	if err := json.Unmarshal(body, into); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed json"})
		return false
	}
	if err := a.validate.Struct(into); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}
