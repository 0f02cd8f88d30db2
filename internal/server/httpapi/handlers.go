package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.RegisterRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.Register(r.Context(), req)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.Login(r.Context(), req.Email, req.Password)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

// ConfirmEmail serves the link from the confirmation email.
func (a *API) ConfirmEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		resp := a.svc.ConfirmEmail(r.Context(), q.Get("userid"), q.Get("token"))
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) ForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.ForgotPassword(r.Context(), req.Email)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) ResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.ResetPasswordRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.ResetPassword(r.Context(), req)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.RefreshSession(r.Context(), req.RefreshToken)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.Logout(r.Context(), req.RefreshToken)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) ResendConfirmation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if !a.decodeRequest(&req, w, r) {
			return
		}
		resp := a.svc.ResendConfirmation(r.Context(), req.Email)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) LogoutAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		resp := a.svc.LogoutAll(r.Context(), p.SubjectID)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		resp := a.svc.GetUserProfile(r.Context(), p.SubjectID)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// ListUsers serves GET /api/users?start=&end= for administrators;
// ?all=true returns every user instead of one page.
func (a *API) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("all"); v != "" {
			all, err := strconv.ParseBool(v)
			if err != nil {
				a.returnJson(w, http.StatusBadRequest, services.Result{
					Message: "Invalid range",
					Errors:  []string{"all must be a boolean"},
					Cause:   common.ErrValidation,
				})
				return
			}
			if all {
				resp := a.svc.ListAllUsers(r.Context())
				a.returnJson(w, StatusFor(resp.Result), resp)
				return
			}
		}

		start, ok1 := queryInt(r, "start", 0)
		end, ok2 := queryInt(r, "end", start+services.MaxPageSize)
		if !ok1 || !ok2 {
			a.returnJson(w, http.StatusBadRequest, services.Result{
				Message: "Invalid range",
				Errors:  []string{"start and end must be integers"},
				Cause:   common.ErrValidation,
			})
			return
		}
		resp := a.svc.ListUsers(r.Context(), start, end)
		a.returnJson(w, StatusFor(resp.Result), resp)
	}
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.returnJson(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
