package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/hibiken/asynq"
)

// TypeSendEmail is the asynq task type carrying one outgoing message.
const TypeSendEmail = "email:send"

const queueMaxRetry = 5

// sendPayload is the task body enqueued by QueueSender and read by Worker.
type sendPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Enqueuer is the part of *asynq.Client used by QueueSender.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender hands messages to a background worker through asynq.
type QueueSender struct {
	client Enqueuer
	closer func() error
	log    logging.Logger
}

func NewQueueSender(redisOpt asynq.RedisClientOpt, log logging.Logger) *QueueSender {
	client := asynq.NewClient(redisOpt)
	q := NewQueueSenderWithClient(client, log)
	q.closer = client.Close
	return q
}

func NewQueueSenderWithClient(client Enqueuer, log logging.Logger) *QueueSender {
	return &QueueSender{client: client, log: log.With("module", "mail_queue")}
}

func (q *QueueSender) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(sendPayload{To: to, Subject: subject, HTML: html})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeSendEmail, payload, asynq.MaxRetry(queueMaxRetry))
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		q.log.Warn(ctx, "enqueue email failed", "to", to, "error", err)
		return fmt.Errorf("enqueue email: %w", err)
	}

	q.log.Debug(ctx, "email enqueued", "to", to, "task_id", info.ID)
	return nil
}

func (q *QueueSender) Close() error {
	if q.closer == nil {
		return nil
	}
	return q.closer()
}
