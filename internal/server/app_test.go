package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = config.StorageMemory
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.MailOutboxFile = filepath.Join(t.TempDir(), "outbox", "mail.eml")
	c.SeedDefaults = false
	c.LogLevel = "error"
	require.NoError(t, c.Validate())
	return c
}

func TestNewApp_MemoryStorage(t *testing.T) {
	ctx := context.Background()
	c := memoryConfig(t)
	c.DefaultRole = "Members"

	app, err := NewApp(ctx, c)
	require.NoError(t, err)
	t.Cleanup(app.close)

	assert.Nil(t, app.worker)
	assert.NotNil(t, app.userService)

	// roles exist even without seeded accounts
	users := app.repomanager.Users(app.repomanager.Conn())
	for _, role := range []string{common.RoleAdministrators, common.RoleUsers, "Members"} {
		require.NoError(t, users.EnsureRole(ctx, role))
	}
	assert.FileExists(t, c.MailOutboxFile)
}

func TestNewApp_BadTemplateDir(t *testing.T) {
	c := memoryConfig(t)
	c.MailTemplateDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(c.MailTemplateDir, "confirm_email.html"), []byte("{{ .Link"), 0o600))

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
