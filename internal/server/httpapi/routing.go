package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gorilla/mux"
)

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.accessLog)

	r.HandleFunc("/healthz", a.Health()).Methods(http.MethodGet)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics).Methods(http.MethodGet)
	}

	s := r.PathPrefix("/api/users").Subrouter()
	s.HandleFunc("/register", a.Register()).Methods(http.MethodPost)
	s.HandleFunc("/login", a.Login()).Methods(http.MethodPost)
	s.HandleFunc("/confirmemail", a.ConfirmEmail()).Methods(http.MethodGet)
	s.HandleFunc("/forgotpassword", a.ForgotPassword()).Methods(http.MethodPost)
	s.HandleFunc("/resetpassword", a.ResetPassword()).Methods(http.MethodPost)
	s.HandleFunc("/refreshtoken", a.Refresh()).Methods(http.MethodPost)
	s.HandleFunc("/logout", a.Logout()).Methods(http.MethodPost)
	s.HandleFunc("/resendconfirmation", a.ResendConfirmation()).Methods(http.MethodPost)

	authed := a.RequireAuth()
	s.Handle("/logoutall", authed(a.LogoutAll())).Methods(http.MethodPost)
	s.Handle("/profile", authed(a.Profile())).Methods(http.MethodGet)

	s.Handle("", a.RequireAuth(common.RoleAdministrators)(a.ListUsers())).Methods(http.MethodGet)

	return r
}
