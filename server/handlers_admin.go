package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/leetbase/auth-service/accounts"
)

// AdminDeleteUserHandler removes an account by ID. Admin role is enforced by
// the route's guard.
func (s *Server) AdminDeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "Missing user id")
			return
		}

		if err := s.accounts.DeleteByID(r.Context(), id); err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				writeError(w, http.StatusNotFound, "User not found")
				return
			}
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
