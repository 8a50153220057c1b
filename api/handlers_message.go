package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"converse/auth"
	"converse/domain"
	"converse/errors"
)

func (a *API) handleDirectHistory(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerID(r.Context())
	peer := mux.Vars(r)["peer"]

	messages, err := a.chat.History(caller, peer)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, emptyAsList(messages))
}

// handleGroupHistory gates history behind persisted membership, same
// rule as sending.
func (a *API) handleGroupHistory(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerID(r.Context())
	groupID := mux.Vars(r)["id"]

	group, err := a.groups.GetGroup(groupID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !group.HasMember(caller) {
		a.writeError(w, errors.ErrNotGroupMember)
		return
	}

	messages, err := a.chat.GroupHistory(groupID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, emptyAsList(messages))
}

func (a *API) handleUnread(w http.ResponseWriter, r *http.Request) {
	messages, err := a.chat.Unread(auth.CallerID(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, emptyAsList(messages))
}

type markReadRequest struct {
	Sender string `json:"sender" validate:"required"`
}

type markReadResponse struct {
	Changed bool `json:"changed"`
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !a.decode(w, r, &req) {
		return
	}

	changed := a.chat.MarkRead(auth.CallerID(r.Context()), req.Sender)
	a.writeJSON(w, http.StatusOK, markReadResponse{Changed: changed})
}

func (a *API) handleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	online := a.registry.OnlineUsers()
	if online == nil {
		online = []string{}
	}
	a.writeJSON(w, http.StatusOK, online)
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}

	hits, err := a.chat.Search(r.Context(), auth.CallerID(r.Context()), query)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, hits)
}

// emptyAsList keeps empty history responses as [] instead of null.
func emptyAsList(messages []domain.Message) []domain.Message {
	if messages == nil {
		return []domain.Message{}
	}
	return messages
}
