package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// askNewPassword reads a password twice and returns it when both match.
func (a *App) askNewPassword() ([]byte, error) {
	first, err := getPassword("Enter password", a.out)
	if err != nil {
		return nil, err
	}
	second, err := getPassword("Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

func (a *App) rememberLogin(ctx context.Context, email string) {
	a.email = email
	access, refresh := a.api.Tokens()
	if err := a.store.Save(ctx, session.Session{Email: email, AccessToken: access, RefreshToken: refresh}); err != nil {
		fmt.Fprintf(a.out, "warning: session not saved: %v\n", err)
	}
}

// Register prompts for the account details, creates the account and keeps
// the returned session.
func (a *App) Register(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	name, err := a.ask("Enter name (optional)")
	if err != nil {
		return err
	}
	surname, err := a.ask("Enter surname (optional)")
	if err != nil {
		return err
	}

	password, err := a.askNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, email, password, name, surname); err != nil {
		return err
	}

	a.rememberLogin(ctx, email)
	fmt.Fprintln(a.out, "Registered. Check your mailbox for the confirmation link.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, email, password); err != nil {
		return err
	}

	a.rememberLogin(ctx, email)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout revokes the session on the server and clears the local copy.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	a.email = ""
	return a.store.Clear(ctx)
}

func (a *App) LogoutAll(ctx context.Context) error {
	if err := a.api.LogoutAll(ctx); err != nil {
		return err
	}
	a.email = ""
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All sessions closed")
	return nil
}

func (a *App) ConfirmEmail(ctx context.Context, userID, token string) error {
	if err := a.api.ConfirmEmail(ctx, userID, token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email confirmed")
	return nil
}

// emailArg returns args[0] or prompts for an email.
func (a *App) emailArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return a.ask("Enter email")
}

func (a *App) ForgotPassword(ctx context.Context, args []string) error {
	email, err := a.emailArg(args)
	if err != nil {
		return err
	}
	if err := a.api.ForgotPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the account exists, a reset link has been sent.")
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	token, err := a.ask("Enter reset token from the email link")
	if err != nil {
		return err
	}

	password, err := a.askNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.ResetPassword(ctx, email, token, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed. Please log in again.")
	return nil
}

func (a *App) ResendConfirmation(ctx context.Context, args []string) error {
	email, err := a.emailArg(args)
	if err != nil {
		return err
	}
	if err := a.api.ResendConfirmation(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the account is unconfirmed, a new link has been sent.")
	return nil
}
