package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	TemplateConfirmEmail  = "confirm_email.html"
	TemplateResetPassword = "reset_password.html"

	SubjectConfirmEmail  = "Confirm your email"
	SubjectResetPassword = "Reset your password"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// LinkData is passed to both templates.
type LinkData struct {
	Name      string
	Link      string
	ExpiresAt time.Time
}

// Templates renders email bodies. Embedded defaults can be overridden by
// same-named files in a directory, which Watch keeps in sync.
type Templates struct {
	mu   sync.RWMutex
	set  *template.Template
	base *template.Template
	dir  string
	log  logging.Logger

	// ReloadDelay is the quiet period after the last change before reloading.
	ReloadDelay time.Duration
}

func NewTemplates(dir string, log logging.Logger) (*Templates, error) {
	base, err := template.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}

	t := &Templates{
		base:        base,
		dir:         dir,
		log:         log.With("module", "mail_templates"),
		ReloadDelay: 500 * time.Millisecond,
	}

	set, err := t.load()
	if err != nil {
		return nil, err
	}
	t.set = set
	return t, nil
}

// load returns the defaults overlaid with the override directory, if any.
func (t *Templates) load() (*template.Template, error) {
	set, err := t.base.Clone()
	if err != nil {
		return nil, err
	}
	if t.dir == "" {
		return set, nil
	}

	pattern := filepath.Join(t.dir, "*.html")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return set, nil
	}

	set, err = set.ParseFiles(matches...)
	if err != nil {
		return nil, fmt.Errorf("parse templates from %s: %w", t.dir, err)
	}
	return set, nil
}

// Reload re-reads the override directory. On error the current set is kept.
func (t *Templates) Reload(ctx context.Context) error {
	set, err := t.load()
	if err != nil {
		t.log.Warn(ctx, "template reload failed, keeping previous templates", "dir", t.dir, "error", err)
		return err
	}

	t.mu.Lock()
	t.set = set
	t.mu.Unlock()

	t.log.Info(ctx, "templates reloaded", "dir", t.dir)
	return nil
}

func (t *Templates) Render(name string, data LinkData) (string, error) {
	t.mu.RLock()
	set := t.set
	t.mu.RUnlock()

	var b bytes.Buffer
	if err := set.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

func (t *Templates) ConfirmEmail(data LinkData) (subject, body string, err error) {
	body, err = t.Render(TemplateConfirmEmail, data)
	return SubjectConfirmEmail, body, err
}

func (t *Templates) ResetPassword(data LinkData) (subject, body string, err error) {
	body, err = t.Render(TemplateResetPassword, data)
	return SubjectResetPassword, body, err
}

// Watch reloads templates whenever the override directory changes, until
// ctx is cancelled. Bursts of events are coalesced into a single reload.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(t.dir); err != nil {
		_ = watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go t.handleWatcher(ctx, watcher, reload)
	go t.scheduleReload(ctx, reload)
	return nil
}

func (t *Templates) handleWatcher(ctx context.Context, watcher *fsnotify.Watcher, reload chan<- struct{}) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.log.Warn(ctx, "template watcher error", "error", err)
		}
	}
}

func (t *Templates) scheduleReload(ctx context.Context, reload <-chan struct{}) {
	var timer *time.Timer
	var c <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-reload:
			if timer != nil {
				timer.Reset(t.ReloadDelay)
			} else {
				timer = time.NewTimer(t.ReloadDelay)
				c = timer.C
			}
		case <-c:
			c = nil
			timer = nil
			_ = t.Reload(ctx)
		}
	}
}
