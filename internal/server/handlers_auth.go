package server

import (
	"encoding/json"
	"net/http"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleUsersLogin serves POST /users/login: verifies credentials, signs a
// token, and sets it on the X-Auth-Token cookie.
func (s *Server) handleUsersLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	account, err := s.users.VerifyPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.authSvc.Sign(account)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "Bearer " + token,
		Path:     "/",
		MaxAge:   int(s.tokenExpiry.Seconds()),
		HttpOnly: true,
	})
	WriteJSON(w, http.StatusOK, map[string]string{"message": "login successful"})
}
