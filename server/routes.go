package server

import "github.com/leetbase/auth-service/accounts"

const (
	RouteHealthz = "/healthz"

	RouteRegister       = "/v1/auth/register"
	RouteLogin          = "/v1/auth/login"
	RouteLogout         = "/v1/auth/logout"
	RouteRefresh        = "/v1/auth/refresh"
	RouteVerifyEmail    = "/v1/auth/verify-email"
	RouteResendEmail    = "/v1/auth/resend-email"
	RouteForgotPassword = "/v1/auth/forgot-password"
	RouteResetPassword  = "/v1/auth/reset-password"
	RouteGithub         = "/v1/auth/github"
	RouteGithubCallback = "/v1/auth/github/callback"

	RouteMe         = "/v1/users/me"
	RouteAdminUsers = "/v1/admin/users/{id}"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))

	// Public auth flows
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResendEmail, ChainMiddleware(s.ResendEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))

	// Session lifecycle rides on the refresh cookie, hence GET
	s.RegisterRouteHandler("GET "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// GitHub OAuth
	s.RegisterRouteHandler("GET "+RouteGithub, ChainMiddleware(s.GithubHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteGithubCallback, ChainMiddleware(s.GithubCallbackHandler(), s.APIMiddleware()...))

	// Guarded routes
	s.RegisterRouteHandler("GET "+RouteMe,
		ChainMiddleware(s.MeHandler(), append(s.APIMiddleware(), s.RequireAuth(WithServiceBypass()))...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUsers,
		ChainMiddleware(s.AdminDeleteUserHandler(), append(s.APIMiddleware(), s.RequireAuth(WithRoles(accounts.RoleAdmin)))...))
}
