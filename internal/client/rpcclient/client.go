// Package rpcclient talks to the gophauth gRPC service and keeps the
// current session tokens, refreshing the access token when it expires.
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokensFunc is called after the client obtains a new token pair.
type TokensFunc func(ctx context.Context, access, refresh string)

type GRPCClient struct {
	conn *grpc.ClientConn
	api  *authrpc.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     TokensFunc
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// New connects to endpoint. Extra dial options are appended, which tests use
// to plug in a bufconn dialer.
func New(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.api = authrpc.NewClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// OnTokens registers fn to persist rotated tokens.
func (c *GRPCClient) OnTokens(fn TokensFunc) {
	c.mu.Lock()
	c.onTokens = fn
	c.mu.Unlock()
}

func (c *GRPCClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.mu.Unlock()
}

func (c *GRPCClient) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) storeTokens(ctx context.Context, access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	fn := c.onTokens
	c.mu.Unlock()
	if fn != nil {
		fn(ctx, access, refresh)
	}
}

func isExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, rotates the refresh token once and retries.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.Tokens()
	if access != "" {
		ctx = withAccessToken(ctx, access)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || method == authrpc.FullMethod(authrpc.MethodRefreshToken) {
		return err
	}
	if !isExpired(err) || refresh == "" {
		return err
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = c.Tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return errors.New(st.Message())
	}
}
