package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/hibiken/asynq"
)

// Worker consumes TypeSendEmail tasks and delivers them with a delegate
// Sender. A failing delegate makes asynq retry the task.
type Worker struct {
	srv      *asynq.Server
	mux      *asynq.ServeMux
	delegate Sender
	log      logging.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, delegate Sender, log logging.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.WarnLevel,
	})
	w := &Worker{
		srv:      srv,
		mux:      asynq.NewServeMux(),
		delegate: delegate,
		log:      log.With("module", "mail_worker"),
	}
	w.mux.HandleFunc(TypeSendEmail, w.HandleSend)
	return w
}

// HandleSend processes one task.
func (w *Worker) HandleSend(ctx context.Context, t *asynq.Task) error {
	var p sendPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.log.Error(ctx, "email task payload invalid", "error", err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.To == "" {
		w.log.Error(ctx, "email task without recipient")
		return fmt.Errorf("empty recipient: %w", asynq.SkipRetry)
	}

	if err := w.delegate.Send(ctx, p.To, p.Subject, p.HTML); err != nil {
		w.log.Warn(ctx, "email delivery failed", "to", p.To, "error", err)
		return err
	}
	return nil
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
