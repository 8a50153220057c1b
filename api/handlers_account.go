package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"converse/auth"
)

type registerRequest struct {
	Username  string `json:"username" validate:"required"`
	Name      string `json:"name"`
	Password  string `json:"password" validate:"required"`
	PublicKey string `json:"public_key"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}

	token, err := a.auth.Register(req.Username, req.Name, req.Password, req.PublicKey)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	token, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.users.GetProfile(mux.Vars(r)["username"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.users.UpdateProfile(auth.CallerID(r.Context()), req.Name, req.PublicKey); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

// handleUploadAvatar takes the raw image bytes as the request body. The
// actual content type is sniffed server side.
func (a *API) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	path, err := a.users.UpdateAvatar(auth.CallerID(r.Context()), data)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"avatar_path": path})
}
