package server

import (
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) initRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.LoggingMiddleware)
	s.router.Use(s.RecoverMiddleware)
	s.router.Use(s.FrameSecurityMiddleware)
	s.router.Use(s.SessionMiddleware)

	s.router.Get(RouteIndex, s.IndexHandler())

	// LOGIN
	s.router.Get(RouteAuthLogin, s.LoginPageHandler())
	s.router.Get(RouteAuthCallback, s.OAuthCallbackHandler())
	s.router.Get(RouteAuthLogout, s.LogoutHandler())

	s.router.With(s.RequireLogin).Get(RouteMe, s.MeHandler())
}
