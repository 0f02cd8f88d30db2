// Package httpapi exposes the account flows over HTTP/JSON under /api/users.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const maxBodyBytes = 1 << 20

// Service is the part of services.UserService the API calls.
type Service interface {
	Register(ctx context.Context, req services.RegisterRequest) *services.SessionResponse
	Login(ctx context.Context, email, password string) *services.SessionResponse
	ConfirmEmail(ctx context.Context, userID, token string) *services.StatusResponse
	ForgotPassword(ctx context.Context, email string) *services.StatusResponse
	ResetPassword(ctx context.Context, req services.ResetPasswordRequest) *services.StatusResponse
	RefreshSession(ctx context.Context, refreshToken string) *services.SessionResponse
	Logout(ctx context.Context, refreshToken string) *services.StatusResponse
	LogoutAll(ctx context.Context, subjectID string) *services.StatusResponse
	ResendConfirmation(ctx context.Context, email string) *services.StatusResponse
	GetUserProfile(ctx context.Context, subjectID string) *services.ProfileResponse
	ListUsers(ctx context.Context, start, end int) *services.UsersResponse
	ListAllUsers(ctx context.Context) *services.UsersResponse
	VerifyAccessToken(token string) (subjectID string, roles []string, err error)
}

type API struct {
	svc     Service
	metrics http.Handler
	log     logging.Logger
}

// New builds the API. metrics may be nil, in which case /metrics is not served.
func New(svc Service, metrics http.Handler, log logging.Logger) *API {
	return &API{svc: svc, metrics: metrics, log: log.With("module", "http")}
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// StatusFor maps a flow result to an HTTP status code.
func StatusFor(r services.Result) int {
	if r.Success {
		return http.StatusOK
	}

	switch {
	case errors.Is(r.Cause, common.ErrStoreFailure), r.Cause == nil:
		return http.StatusInternalServerError
	case errors.Is(r.Cause, common.ErrValidation),
		errors.Is(r.Cause, common.ErrMalformedToken),
		errors.Is(r.Cause, common.ErrorAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(r.Cause, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(r.Cause, common.ErrorNotFound):
		return http.StatusNotFound
	}
	// credential and token failures
	return http.StatusUnauthorized
}

func (a *API) decodeRequest(req any, w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		a.log.Debug(r.Context(), "bad json request", "method", r.Method, "path", r.URL.Path, "error", err)
		a.returnJson(w, http.StatusBadRequest, services.Result{
			Message: "Bad request",
			Errors:  []string{"request body must be a JSON object"},
		})
		return false
	}
	return true
}

func (a *API) returnJson(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Warn(context.Background(), "write response failed", "error", err)
	}
}

// bearerToken extracts the access token from "Authorization: Bearer" or
// the access_token header.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.Header.Get(common.AccessTokenHeaderName)
}
