package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/financeiro/authkit"
	"github.com/financeiro/authkit/middleware"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type authResponse struct {
	User         authkit.Identity `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.engine.Register(r.Context(), authkit.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}, clientMeta(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondData(w, http.StatusCreated, authResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.engine.Login(r.Context(), authkit.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, clientMeta(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondData(w, http.StatusOK, authResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.engine.Refresh(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondData(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.engine.Logout(r.Context(), req.RefreshToken, clientMeta(r)); err != nil {
		respondEngineError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decode(w, r, &req) {
		return
	}

	reset, err := s.engine.RequestPasswordReset(r.Context(), req.Email, clientMeta(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	data := map[string]string{
		"message": "if the email exists, a reset link has been sent",
	}
	if reset.RawToken != "" {
		data["resetToken"] = reset.RawToken
	}
	respondData(w, http.StatusOK, data)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.engine.ResetPassword(r.Context(), req.Token, req.NewPassword, clientMeta(r)); err != nil {
		respondEngineError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	respondData(w, http.StatusOK, map[string]any{"user": identity})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body required")
			return false
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return false
	}
	return true
}
