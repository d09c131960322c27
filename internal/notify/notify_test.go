package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/testutil"
	"gorm.io/gorm"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
	block   bool
}

func (s *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := s.failFor[chatID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	db       *gorm.DB
	tasks    repository.TaskRepository
	users    repository.UserRepository
	settings repository.SettingsRepository
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewTestDB(t)
	return &fixture{
		db:       db,
		tasks:    repository.NewTaskRepository(db),
		users:    repository.NewUserRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
}

func (f *fixture) user(t *testing.T, tgID int64) *models.User {
	user := &models.User{FirstName: "u"}
	if tgID != 0 {
		user.TelegramID = &tgID
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) task(t *testing.T, responsibleID uint64, extras ...uint64) *models.Task {
	group := &models.Group{Name: "g", OwnerID: responsibleID}
	require.NoError(t, f.db.Create(group).Error)

	deadline := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	task := &models.Task{
		GroupID:       group.ID,
		Title:         "Write report",
		Status:        models.TaskStatusInProgress,
		Deadline:      &deadline,
		ResponsibleID: responsibleID,
	}
	require.NoError(t, f.tasks.Create(context.Background(), task, extras))
	return task
}

func TestFormatMessage(t *testing.T) {
	task := &models.Task{Title: "Ship it", Status: models.TaskStatusPostponed}
	assert.Equal(t, "Task updated: Ship it\nStatus: Postponed\nDeadline: none", FormatMessage(task, models.EventTaskUpdated))

	deadline := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	task.Deadline = &deadline
	task.Urgent = true
	assert.Equal(t, "New task: Ship it\nStatus: Postponed\nDeadline: 2026-01-02\nUrgent", FormatMessage(task, models.EventTaskCreated))
}

func TestDeliver_RecipientRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actor := f.user(t, 100)
	assignee := f.user(t, 200)
	noContact := f.user(t, 0)
	optedOut := f.user(t, 400)
	failing := f.user(t, 500)

	settings, err := f.settings.GetOrCreate(ctx, optedOut.ID)
	require.NoError(t, err)
	settings.NotifyNewTask = false
	require.NoError(t, f.settings.Update(ctx, settings))

	task := f.task(t, actor.ID, assignee.ID, noContact.ID, optedOut.ID, failing.ID)

	sender := &fakeSender{failFor: map[int64]error{500: errors.New("blocked by user")}}
	d := NewDispatcher(NewMemoryQueue(1), f.tasks, f.users, f.settings, sender, time.Second, discardLogger())

	report, err := d.Deliver(ctx, NewJob(task.ID, models.EventTaskCreated, actor.ID))
	require.NoError(t, err)
	assert.Equal(t, Report{Sent: 1, Skipped: 2, Failed: 1}, report)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(200), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Write report")
	assert.Contains(t, msgs[0].Text, "In progress")
	assert.Contains(t, msgs[0].Text, "2026-10-24")

	// the opted-out user still receives update notifications
	report, err = d.Deliver(ctx, NewJob(task.ID, models.EventTaskUpdated, actor.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
}

func TestDeliver_ActorAloneGetsNothing(t *testing.T) {
	f := newFixture(t)
	actor := f.user(t, 100)
	task := f.task(t, actor.ID)

	sender := &fakeSender{}
	d := NewDispatcher(NewMemoryQueue(1), f.tasks, f.users, f.settings, sender, time.Second, discardLogger())

	report, err := d.Deliver(context.Background(), NewJob(task.ID, models.EventTaskUpdated, actor.ID))
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Empty(t, sender.messages())
}

func TestDeliver_TimeoutIsBounded(t *testing.T) {
	f := newFixture(t)
	actor := f.user(t, 100)
	other := f.user(t, 200)
	task := f.task(t, other.ID)

	d := NewDispatcher(NewMemoryQueue(1), f.tasks, f.users, f.settings, &fakeSender{block: true}, 20*time.Millisecond, discardLogger())

	start := time.Now()
	report, err := d.Deliver(context.Background(), NewJob(task.ID, models.EventTaskUpdated, actor.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNotify_DropsWhenQueueFull(t *testing.T) {
	queue := NewMemoryQueue(1)
	d := NewDispatcher(queue, nil, nil, nil, &fakeSender{}, time.Second, discardLogger())

	task := &models.Task{ID: 7}
	d.Notify(context.Background(), task, models.EventTaskCreated, 1)
	d.Notify(context.Background(), task, models.EventTaskUpdated, 1)

	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), job.TaskID)
	assert.Equal(t, models.EventTaskCreated, job.Event)
	assert.NotEmpty(t, job.ID)
}

func TestMemoryQueue_DequeueHonoursContext(t *testing.T) {
	queue := NewMemoryQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := queue.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, queue.Close())
	assert.ErrorIs(t, queue.Enqueue(context.Background(), Job{}), ErrQueueClosed)
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	queue := NewRedisQueueWithClient(client, "test:jobs")
	defer queue.Close()

	ctx := context.Background()
	first := NewJob(1, models.EventTaskCreated, 10)
	second := NewJob(2, models.EventTaskUpdated, 20)
	require.NoError(t, queue.Enqueue(ctx, first))
	require.NoError(t, queue.Enqueue(ctx, second))

	got, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Event, got.Event)

	got, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.TaskID, got.TaskID)
}

func TestNewRedisQueue_FromURL(t *testing.T) {
	s := miniredis.RunT(t)

	queue, err := NewRedisQueue(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)
	defer queue.Close()

	_, err = NewRedisQueue(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestWorker_DeliversQueuedJobs(t *testing.T) {
	f := newFixture(t)
	actor := f.user(t, 100)
	assignee := f.user(t, 200)
	task := f.task(t, assignee.ID)

	queue := NewMemoryQueue(8)
	sender := &fakeSender{}
	d := NewDispatcher(queue, f.tasks, f.users, f.settings, sender, time.Second, discardLogger())
	w := NewWorker(queue, d, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	d.Notify(context.Background(), task, models.EventTaskCreated, actor.ID)

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
