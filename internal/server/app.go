// Package server wires the configured storage, mail delivery, token
// issuers and transports into a running gophauth instance and handles
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/onetime"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/retention"
	"github.com/dmitrijs2005/gophauth/internal/server/seed"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/sessions"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	templates   *mail.Templates
	worker      *mail.Worker
	metrics     *metrics.Metrics
	userService *services.UserService
	closers     []io.Closer
}

// NewApp builds every component from c. Resources opened before a failure
// are released.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	app := &App{config: c, logger: logger, metrics: metrics.New()}

	defer func() {
		if err != nil {
			app.close()
		}
	}()

	if err := app.initStorage(ctx); err != nil {
		return nil, err
	}

	hasher := cryptox.NewArgon2Hasher()

	accounts := []seed.Account(nil)
	if c.SeedDefaults {
		accounts = seed.DefaultAccounts
	}
	if _, err := seed.Provision(ctx, app.repomanager, hasher, logger, accounts); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if err := app.repomanager.Users(app.repomanager.Conn()).EnsureRole(ctx, c.DefaultRole); err != nil {
		return nil, fmt.Errorf("ensure default role: %w", err)
	}

	app.templates, err = mail.NewTemplates(c.MailTemplateDir, logger)
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}

	mailer, err := app.initMailer(ctx)
	if err != nil {
		return nil, err
	}

	signer := auth.NewSigner([]byte(c.SecretKey), c.Issuer)
	store := sessions.NewRefreshStore(app.repomanager, logger)

	app.userService, err = services.NewUserService(
		app.repomanager,
		hasher,
		onetime.NewIssuer(),
		sessions.NewIssuer(signer, store, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration),
		app.templates,
		mailer,
		app.metrics,
		logger,
		services.Settings{
			PublicURL:             c.PublicURL,
			DefaultRole:           c.DefaultRole,
			ConfirmationTTL:       c.EmailConfirmationTTL,
			ResetTTL:              c.PasswordResetTTL,
			RequireConfirmedEmail: c.RequireConfirmedEmail,
		},
	)
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) redisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})
}

func (app *App) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	}
}

func (app *App) initStorage(ctx context.Context) error {
	c := app.config

	if c.StorageBackend == config.StorageMemory {
		if c.OneTimeStore == config.OneTimeStoreRedis {
			app.logger.Warn(ctx, "redis one-time store ignored with memory storage")
		}
		app.logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		app.repomanager = repomanager.NewMemoryRepositoryManager()
		return nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	var opts []repomanager.Option
	if c.OneTimeStore == config.OneTimeStoreRedis {
		rdb := app.redisClient()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = db.Close()
			return fmt.Errorf("redis ping: %w", err)
		}
		app.closers = append(app.closers, rdb)
		opts = append(opts, repomanager.WithOneTimeStore(onetimetokens.NewRedisRepository(rdb, "gophauth:ott")))
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db, opts...)
	if err != nil {
		_ = db.Close()
		return err
	}
	app.repomanager = rm

	if err := rm.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// initMailer builds the delivery sender and, with the queue enabled,
// puts it behind an asynq worker.
func (app *App) initMailer(ctx context.Context) (mail.Sender, error) {
	c := app.config

	var delivery mail.Sender
	switch c.MailSender {
	case config.MailSenderS3:
		s3, err := mail.NewS3Sender(ctx, mail.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		}, c.MailFrom, app.logger)
		if err != nil {
			return nil, fmt.Errorf("s3 mail sender: %w", err)
		}
		delivery = s3
	default:
		var out io.Writer = os.Stdout
		if c.MailOutboxFile != "" {
			f, err := filex.OpenAppend(c.MailOutboxFile)
			if err != nil {
				return nil, fmt.Errorf("mail outbox: %w", err)
			}
			app.closers = append(app.closers, f)
			out = f
		}
		delivery = mail.NewLogSender(out, c.MailFrom, app.logger)
	}

	if !c.MailQueue {
		return delivery, nil
	}

	queue := mail.NewQueueSender(app.redisOpt(), app.logger)
	app.closers = append(app.closers, queue)
	app.worker = mail.NewWorker(app.redisOpt(), delivery, app.logger)
	return queue, nil
}

func (app *App) close() {
	if app.worker != nil {
		app.worker.Shutdown()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	if app.repomanager != nil {
		if err := app.repomanager.Close(); err != nil {
			app.logger.Warn(context.Background(), "close storage failed", "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	api := httpapi.New(app.userService, app.metrics.Handler(), app.logger)
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// releases all resources.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.worker != nil {
		if err := app.worker.Start(); err != nil {
			app.logger.Error(ctx, "mail worker failed to start", "error", err)
			return
		}
	}

	if err := app.templates.Watch(ctx); err != nil {
		app.logger.Warn(ctx, "template watch disabled", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		if app.config.RetentionInterval > 0 {
			retention.NewSweeper(app.repomanager, retention.DefaultGrace, app.logger).Run(ctx, app.config.RetentionInterval)
		}
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
