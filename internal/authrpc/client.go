package authrpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is the client stub of AuthService. Calls are sent with the JSON
// content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*SessionReply, error) {
	return invoke[SessionReply](ctx, c.cc, MethodRegister, in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*SessionReply, error) {
	return invoke[SessionReply](ctx, c.cc, MethodLogin, in, opts)
}

func (c *Client) ConfirmEmail(ctx context.Context, in *ConfirmEmailRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodConfirmEmail, in, opts)
}

func (c *Client) ForgotPassword(ctx context.Context, in *EmailRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodForgotPassword, in, opts)
}

func (c *Client) ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodResetPassword, in, opts)
}

func (c *Client) RefreshToken(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*SessionReply, error) {
	return invoke[SessionReply](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *Client) Logout(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodLogout, in, opts)
}

func (c *Client) LogoutAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodLogoutAll, in, opts)
}

func (c *Client) ResendConfirmation(ctx context.Context, in *EmailRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodResendConfirmation, in, opts)
}

func (c *Client) Profile(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, MethodProfile, in, opts)
}

func (c *Client) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*UsersReply, error) {
	return invoke[UsersReply](ctx, c.cc, MethodListUsers, in, opts)
}

func (c *Client) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingReply, error) {
	return invoke[PingReply](ctx, c.cc, MethodPing, in, opts)
}
