package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func TestQueueSender_Enqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	q := NewQueueSenderWithClient(enq, logging.Nop())

	require.NoError(t, q.Send(context.Background(), "a@example.com", "Subj", "<p>x</p>"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeSendEmail, enq.tasks[0].Type())

	var p sendPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &p))
	assert.Equal(t, sendPayload{To: "a@example.com", Subject: "Subj", HTML: "<p>x</p>"}, p)
	assert.NoError(t, q.Close())
}

func TestQueueSender_EnqueueError(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	q := NewQueueSenderWithClient(enq, logging.Nop())

	err := q.Send(context.Background(), "a@example.com", "Subj", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func newTestWorker(delegate Sender) *Worker {
	return &Worker{delegate: delegate, log: logging.Nop()}
}

func TestWorker_HandleSend_Delivers(t *testing.T) {
	var gotTo, gotSubject, gotHTML string
	w := newTestWorker(SenderFunc(func(_ context.Context, to, subject, html string) error {
		gotTo, gotSubject, gotHTML = to, subject, html
		return nil
	}))

	payload, _ := json.Marshal(sendPayload{To: "a@example.com", Subject: "S", HTML: "H"})
	require.NoError(t, w.HandleSend(context.Background(), asynq.NewTask(TypeSendEmail, payload)))
	assert.Equal(t, "a@example.com", gotTo)
	assert.Equal(t, "S", gotSubject)
	assert.Equal(t, "H", gotHTML)
}

func TestWorker_HandleSend_BadPayloadSkipsRetry(t *testing.T) {
	called := false
	w := newTestWorker(SenderFunc(func(context.Context, string, string, string) error {
		called = true
		return nil
	}))

	err := w.HandleSend(context.Background(), asynq.NewTask(TypeSendEmail, []byte("{not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.HandleSend(context.Background(), asynq.NewTask(TypeSendEmail, []byte(`{"subject":"x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)
}

func TestWorker_HandleSend_DelegateErrorRetries(t *testing.T) {
	boom := errors.New("smtp unavailable")
	w := newTestWorker(SenderFunc(func(context.Context, string, string, string) error { return boom }))

	payload, _ := json.Marshal(sendPayload{To: "a@example.com"})
	err := w.HandleSend(context.Background(), asynq.NewTask(TypeSendEmail, payload))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
