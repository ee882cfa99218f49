package server

import (
	"net/http"
)

// IndexPageData contains data for rendering the home page
type IndexPageData struct {
	AppName   string
	LoggedIn  bool
	Error     string
	LoginURL  string
	LogoutURL string
	MeURL     string
}

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		renderPage(w, "index.html", IndexPageData{
			AppName:   s.config.GetAppName(),
			LoggedIn:  sess != nil && sess.IsAuthenticated(),
			Error:     loginErrorMessage(r.URL.Query()),
			LoginURL:  RouteAuthLogin,
			LogoutURL: RouteAuthLogout,
			MeURL:     RouteMe,
		})
	}
}
