package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/rpcclient"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// AuthClient is the server API the CLI drives.
type AuthClient interface {
	Register(ctx context.Context, email string, password []byte, name, surname string) error
	Login(ctx context.Context, email string, password []byte) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ConfirmEmail(ctx context.Context, userID, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token string, password []byte) error
	ResendConfirmation(ctx context.Context, email string) error
	Profile(ctx context.Context) (*authrpc.Profile, error)
	ListUsers(ctx context.Context, start, end int) ([]authrpc.Profile, error)
	ListAllUsers(ctx context.Context) ([]authrpc.Profile, error)
	Ping(ctx context.Context) error

	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	OnTokens(fn rpcclient.TokensFunc)
	Close() error
}

// SessionStore persists the login between runs.
type SessionStore interface {
	Load(ctx context.Context) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	SaveTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
	Close() error
}

type App struct {
	config *config.Config
	api    AuthClient
	store  SessionStore
	email  string
	reader *bufio.Reader
	out    io.Writer

	modeMu sync.Mutex
	mode   Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.Open(ctx, c.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	api, err := rpcclient.New(c.ServerEndpointAddr)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return newApp(c, api, store, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api AuthClient, store SessionStore, in io.Reader, out io.Writer) *App {
	a := &App{config: c, api: api, store: store, reader: bufio.NewReader(in), out: out}
	api.OnTokens(a.persistTokens)
	return a
}

func (a *App) persistTokens(ctx context.Context, access, refresh string) {
	if err := a.store.SaveTokens(ctx, access, refresh); err != nil {
		fmt.Fprintf(a.out, "warning: session not saved: %v\n", err)
	}
}

// restore loads a saved session, if any.
func (a *App) restore(ctx context.Context) error {
	s, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if s.Empty() {
		return nil
	}
	a.api.SetTokens(s.AccessToken, s.RefreshToken)
	a.email = s.Email
	return nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	_, refresh := a.api.Tokens()
	return refresh != ""
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()
	defer a.store.Close()

	if err := a.restore(ctx); err != nil {
		fmt.Fprintf(a.out, "warning: saved session not loaded: %v\n", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.Root(ctx)
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
