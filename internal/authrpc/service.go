package authrpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophauth.AuthService"

const (
	MethodRegister           = "Register"
	MethodLogin              = "Login"
	MethodConfirmEmail       = "ConfirmEmail"
	MethodForgotPassword     = "ForgotPassword"
	MethodResetPassword      = "ResetPassword"
	MethodRefreshToken       = "RefreshToken"
	MethodLogout             = "Logout"
	MethodLogoutAll          = "LogoutAll"
	MethodResendConfirmation = "ResendConfirmation"
	MethodProfile            = "Profile"
	MethodListUsers          = "ListUsers"
	MethodPing               = "Ping"
)

// FullMethod returns the "/service/method" path of a method name.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AuthServiceServer is implemented by the server side.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*SessionReply, error)
	Login(context.Context, *LoginRequest) (*SessionReply, error)
	ConfirmEmail(context.Context, *ConfirmEmailRequest) (*StatusReply, error)
	ForgotPassword(context.Context, *EmailRequest) (*StatusReply, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*StatusReply, error)
	RefreshToken(context.Context, *RefreshRequest) (*SessionReply, error)
	Logout(context.Context, *RefreshRequest) (*StatusReply, error)
	LogoutAll(context.Context, *Empty) (*StatusReply, error)
	ResendConfirmation(context.Context, *EmailRequest) (*StatusReply, error)
	Profile(context.Context, *Empty) (*Profile, error)
	ListUsers(context.Context, *ListUsersRequest) (*UsersReply, error)
	Ping(context.Context, *Empty) (*PingReply, error)
}

func unary[Req, Resp any](name string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AuthServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, AuthServiceServer.Register),
		unary(MethodLogin, AuthServiceServer.Login),
		unary(MethodConfirmEmail, AuthServiceServer.ConfirmEmail),
		unary(MethodForgotPassword, AuthServiceServer.ForgotPassword),
		unary(MethodResetPassword, AuthServiceServer.ResetPassword),
		unary(MethodRefreshToken, AuthServiceServer.RefreshToken),
		unary(MethodLogout, AuthServiceServer.Logout),
		unary(MethodLogoutAll, AuthServiceServer.LogoutAll),
		unary(MethodResendConfirmation, AuthServiceServer.ResendConfirmation),
		unary(MethodProfile, AuthServiceServer.Profile),
		unary(MethodListUsers, AuthServiceServer.ListUsers),
		unary(MethodPing, AuthServiceServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/auth",
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
