package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc"
)

// Service is the part of services.UserService the gRPC server calls.
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

type GRPCServer struct {
	address string
	svc     Service
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, svc Service) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		svc:     svc,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	authrpc.RegisterAuthServiceServer(srv, &handler{svc: s.svc, logger: s.logger})
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
