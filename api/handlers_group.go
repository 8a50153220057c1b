package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"converse/auth"
)

type createGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type memberRequest struct {
	Username string `json:"username" validate:"required"`
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !a.decode(w, r, &req) {
		return
	}

	group, err := a.groups.CreateGroup(req.Name, auth.CallerID(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, group)
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.groups.UserGroups(auth.CallerID(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, groups)
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := a.groups.GetGroup(mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, group)
}

func (a *API) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.groups.DeleteGroup(mux.Vars(r)["id"], auth.CallerID(r.Context())); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.groups.AddMember(mux.Vars(r)["id"], auth.CallerID(r.Context()), req.Username); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := a.groups.RemoveMember(vars["id"], auth.CallerID(r.Context()), vars["username"]); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handlePromoteAdmin(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.groups.PromoteAdmin(mux.Vars(r)["id"], auth.CallerID(r.Context()), req.Username); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}
