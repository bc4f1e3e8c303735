package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/auth"
	"github.com/leetbase/auth-service/internal/httperr"
	"github.com/leetbase/auth-service/otp"
	"github.com/rs/zerolog/log"
)

// sessionResponse is the payload returned whenever a handler establishes a
// session. The refresh token travels only in its cookie.
type sessionResponse struct {
	User        accounts.Account `json:"user"`
	AccessToken string           `json:"accessToken"`
	CSRFToken   string           `json:"csrfToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeServiceError maps a service-layer error onto its HTTP status and
// client-safe message, logging the cause when it is a server-side failure.
func writeServiceError(w http.ResponseWriter, err error) {
	status := httperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
	}
	writeError(w, status, httperr.Message(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) writeSession(w http.ResponseWriter, status int, session *auth.Session) {
	s.cookies().setSession(w, session.RefreshToken, session.CSRFToken)
	writeJSON(w, status, sessionResponse{
		User:        session.Account,
		AccessToken: session.AccessToken,
		CSRFToken:   session.CSRFToken,
	})
}

func (s *Server) cookies() cookieWriter {
	return cookieWriter{
		production: s.config.IsProduction(),
		refreshTTL: s.config.RefreshTokenTTL,
	}
}

// RegisterHandler creates an account and a profile, starts a session and
// kicks off email verification.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
			Name     string `json:"name"`
			Avatar   string `json:"avatar"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		session, err := s.auth.Register(r.Context(), auth.RegisterInput{
			Username: body.Username,
			Password: body.Password,
			Email:    body.Email,
			Name:     body.Name,
			Avatar:   body.Avatar,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.writeSession(w, http.StatusCreated, session)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		session, err := s.auth.Login(r.Context(), body.Username, body.Password)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.writeSession(w, http.StatusOK, session)
	}
}

// VerifyEmailHandler consumes a verification pin and logs the account in.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
			Pin   string `json:"pin"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		session, err := s.auth.VerifyEmail(r.Context(), body.Email, body.Pin)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.writeSession(w, http.StatusOK, session)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var refreshToken string
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			refreshToken = cookie.Value
		}

		accessToken, err := s.auth.Refresh(r.Context(), refreshToken)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			AccessToken string `json:"accessToken"`
		}{AccessToken: accessToken})
	}
}

// LogoutHandler revokes the session tied to the refresh cookie and clears
// both session cookies. It never fails, even without a valid session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			s.auth.Logout(r.Context(), cookie.Value)
		}
		s.cookies().clearSession(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		if err := s.auth.ForgotPassword(r.Context(), body.Email); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Email sent successfully"})
	}
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Pin      string `json:"pin"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		if err := s.auth.ResetPassword(r.Context(), body.Email, body.Pin, body.Password); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
	}
}

// ResendEmailHandler re-issues a verification or reset pin. The action field
// selects which of the two mails goes out.
func (s *Server) ResendEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email  string `json:"email"`
			Action string `json:"action"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		if err := s.auth.ResendChallenge(r.Context(), otp.Purpose(body.Action), body.Email); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Email sent successfully"})
	}
}

// GithubHandler sends the browser to GitHub's consent screen.
func (s *Server) GithubHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.provider.AuthCodeURL(), http.StatusTemporaryRedirect)
	}
}

// GithubCallbackHandler completes the OAuth exchange and hands the session
// back to the frontend via the redirect query string.
func (s *Server) GithubCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.OAuthLogin(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.cookies().setSession(w, session.RefreshToken, session.CSRFToken)

		query := url.Values{}
		query.Set("accessToken", session.AccessToken)
		query.Set("csrfToken", session.CSRFToken)
		http.Redirect(w, r, s.config.AppURL+"?"+query.Encode(), http.StatusFound)
	}
}

// MeHandler returns the sanitized account attached by the access guard.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			writeError(w, http.StatusUnauthorized, "User is not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			User accounts.Account `json:"user"`
		}{User: principal.Account})
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	}
}
