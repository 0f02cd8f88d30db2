package rpcclient

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
)

// Register creates an account and keeps the returned session.
func (c *GRPCClient) Register(ctx context.Context, email string, password []byte, name, surname string) error {
	resp, err := c.api.Register(ctx, &authrpc.RegisterRequest{
		Email:           email,
		Password:        string(password),
		ConfirmPassword: string(password),
		Name:            name,
		Surname:         surname,
	})
	if err != nil {
		return c.mapError(err)
	}
	c.storeTokens(ctx, resp.AccessToken, resp.RefreshToken)
	return nil
}

func (c *GRPCClient) Login(ctx context.Context, email string, password []byte) error {
	resp, err := c.api.Login(ctx, &authrpc.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return c.mapError(err)
	}
	c.storeTokens(ctx, resp.AccessToken, resp.RefreshToken)
	return nil
}

// Refresh rotates the refresh token.
func (c *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	resp, err := c.api.RefreshToken(ctx, &authrpc.RefreshRequest{RefreshToken: refresh})
	if err != nil {
		return c.mapError(err)
	}
	c.storeTokens(ctx, resp.AccessToken, resp.RefreshToken)
	return nil
}

// Logout revokes the current refresh token and forgets the session.
func (c *GRPCClient) Logout(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return nil
	}
	if _, err := c.api.Logout(ctx, &authrpc.RefreshRequest{RefreshToken: refresh}); err != nil {
		return c.mapError(err)
	}
	c.storeTokens(ctx, "", "")
	return nil
}

func (c *GRPCClient) LogoutAll(ctx context.Context) error {
	if _, err := c.api.LogoutAll(ctx, &authrpc.Empty{}); err != nil {
		return c.mapError(err)
	}
	c.storeTokens(ctx, "", "")
	return nil
}

func (c *GRPCClient) ConfirmEmail(ctx context.Context, userID, token string) error {
	_, err := c.api.ConfirmEmail(ctx, &authrpc.ConfirmEmailRequest{UserID: userID, Token: token})
	return c.mapError(err)
}

func (c *GRPCClient) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.api.ForgotPassword(ctx, &authrpc.EmailRequest{Email: email})
	return c.mapError(err)
}

func (c *GRPCClient) ResetPassword(ctx context.Context, email, token string, password []byte) error {
	_, err := c.api.ResetPassword(ctx, &authrpc.ResetPasswordRequest{
		Email:           email,
		Token:           token,
		Password:        string(password),
		ConfirmPassword: string(password),
	})
	return c.mapError(err)
}

func (c *GRPCClient) ResendConfirmation(ctx context.Context, email string) error {
	_, err := c.api.ResendConfirmation(ctx, &authrpc.EmailRequest{Email: email})
	return c.mapError(err)
}

func (c *GRPCClient) Profile(ctx context.Context) (*authrpc.Profile, error) {
	p, err := c.api.Profile(ctx, &authrpc.Empty{})
	if err != nil {
		return nil, c.mapError(err)
	}
	return p, nil
}

func (c *GRPCClient) ListUsers(ctx context.Context, start, end int) ([]authrpc.Profile, error) {
	resp, err := c.api.ListUsers(ctx, &authrpc.ListUsersRequest{Start: start, End: end})
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp.Users, nil
}

func (c *GRPCClient) ListAllUsers(ctx context.Context) ([]authrpc.Profile, error) {
	resp, err := c.api.ListUsers(ctx, &authrpc.ListUsersRequest{All: true})
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp.Users, nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.api.Ping(ctx, &authrpc.Empty{})
	if err != nil {
		return c.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}
