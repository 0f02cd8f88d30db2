package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type handler struct {
	svc    Service
	logger logging.Logger
}

var _ authrpc.AuthServiceServer = (*handler)(nil)

func codeFor(r services.Result) codes.Code {
	switch {
	case errors.Is(r.Cause, common.ErrStoreFailure), r.Cause == nil:
		return codes.Internal
	case errors.Is(r.Cause, common.ErrorAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(r.Cause, common.ErrValidation), errors.Is(r.Cause, common.ErrMalformedToken):
		return codes.InvalidArgument
	case errors.Is(r.Cause, common.ErrorForbidden):
		return codes.PermissionDenied
	case errors.Is(r.Cause, common.ErrorNotFound):
		return codes.NotFound
	}
	return codes.Unauthenticated
}

// toStatus converts a failed result into a gRPC status error.
func toStatus(r services.Result) error {
	msg := r.Message
	if len(r.Errors) > 0 {
		msg += ": " + strings.Join(r.Errors, "; ")
	}
	return status.Error(codeFor(r), msg)
}

func sessionReply(resp *services.SessionResponse) (*authrpc.SessionReply, error) {
	if !resp.Success {
		return nil, toStatus(resp.Result)
	}
	return &authrpc.SessionReply{
		Message:          resp.Message,
		AccessToken:      resp.AccessToken,
		RefreshToken:     resp.RefreshToken,
		AccessExpiresAt:  resp.AccessExpiresAt,
		RefreshExpiresAt: resp.RefreshExpiresAt,
	}, nil
}

func statusReply(resp *services.StatusResponse) (*authrpc.StatusReply, error) {
	if !resp.Success {
		return nil, toStatus(resp.Result)
	}
	return &authrpc.StatusReply{Message: resp.Message}, nil
}

func profile(p models.Profile) authrpc.Profile {
	return authrpc.Profile{
		ID:             p.ID,
		Email:          p.Email,
		Name:           p.Name,
		Surname:        p.Surname,
		EmailConfirmed: p.EmailConfirmed,
		Roles:          p.Roles,
	}
}

func (h *handler) Register(ctx context.Context, req *authrpc.RegisterRequest) (*authrpc.SessionReply, error) {
	return sessionReply(h.svc.Register(ctx, services.RegisterRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Surname:         req.Surname,
	}))
}

func (h *handler) Login(ctx context.Context, req *authrpc.LoginRequest) (*authrpc.SessionReply, error) {
	return sessionReply(h.svc.Login(ctx, req.Email, req.Password))
}

func (h *handler) ConfirmEmail(ctx context.Context, req *authrpc.ConfirmEmailRequest) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.ConfirmEmail(ctx, req.UserID, req.Token))
}

func (h *handler) ForgotPassword(ctx context.Context, req *authrpc.EmailRequest) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.ForgotPassword(ctx, req.Email))
}

func (h *handler) ResetPassword(ctx context.Context, req *authrpc.ResetPasswordRequest) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.ResetPassword(ctx, services.ResetPasswordRequest{
		Email:           req.Email,
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}))
}

func (h *handler) RefreshToken(ctx context.Context, req *authrpc.RefreshRequest) (*authrpc.SessionReply, error) {
	return sessionReply(h.svc.RefreshSession(ctx, req.RefreshToken))
}

func (h *handler) Logout(ctx context.Context, req *authrpc.RefreshRequest) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.Logout(ctx, req.RefreshToken))
}

func (h *handler) LogoutAll(ctx context.Context, _ *authrpc.Empty) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.LogoutAll(ctx, userIDFrom(ctx)))
}

func (h *handler) ResendConfirmation(ctx context.Context, req *authrpc.EmailRequest) (*authrpc.StatusReply, error) {
	return statusReply(h.svc.ResendConfirmation(ctx, req.Email))
}

func (h *handler) Profile(ctx context.Context, _ *authrpc.Empty) (*authrpc.Profile, error) {
	resp := h.svc.GetUserProfile(ctx, userIDFrom(ctx))
	if !resp.Success {
		return nil, toStatus(resp.Result)
	}
	p := profile(*resp.Payload)
	return &p, nil
}

func (h *handler) ListUsers(ctx context.Context, req *authrpc.ListUsersRequest) (*authrpc.UsersReply, error) {
	var resp *services.UsersResponse
	if req.All {
		resp = h.svc.ListAllUsers(ctx)
	} else {
		resp = h.svc.ListUsers(ctx, req.Start, req.End)
	}
	if !resp.Success {
		return nil, toStatus(resp.Result)
	}
	out := &authrpc.UsersReply{Users: make([]authrpc.Profile, 0, len(resp.Payload))}
	for _, p := range resp.Payload {
		out.Users = append(out.Users, profile(p))
	}
	return out, nil
}

func (h *handler) Ping(context.Context, *authrpc.Empty) (*authrpc.PingReply, error) {
	return &authrpc.PingReply{Status: "OK"}, nil
}
