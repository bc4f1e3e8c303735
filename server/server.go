// Package server is the HTTP surface of the identity service: routes, auth
// handlers, the session cookies, and the per-route access guard.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/leetbase/auth-service/accounts"
	"github.com/leetbase/auth-service/auth"
	"github.com/leetbase/auth-service/internal/config"
	"github.com/leetbase/auth-service/oauth"
	"github.com/leetbase/auth-service/token"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	tokens   *token.Service
	accounts accounts.Store
	provider oauth.Provider
}

func New(cfg config.Config, deps auth.Deps, tokens *token.Service) (*Server, error) {
	authService, err := auth.NewService(deps, tokens)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}

	s := &Server{
		env:      cfg.Env,
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		tokens:   tokens,
		accounts: deps.Accounts,
		provider: deps.Provider,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip the route dump outside development
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	displayMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + displayMethod + ResetColor
	} else {
		displayMethod = Gray + displayMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
