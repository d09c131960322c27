package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
)

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Report counts the outcome of one job.
type Report struct {
	Sent    int
	Skipped int
	Failed  int
}

// Dispatcher turns task events into queued jobs and delivers them.
type Dispatcher struct {
	queue    Queue
	tasks    repository.TaskRepository
	users    repository.UserRepository
	settings repository.SettingsRepository
	sender   Sender
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. timeout bounds each outbound message.
func NewDispatcher(
	queue Queue,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	settings repository.SettingsRepository,
	sender Sender,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:    queue,
		tasks:    tasks,
		users:    users,
		settings: settings,
		sender:   sender,
		timeout:  timeout,
		logger:   logger,
	}
}

// Notify queues delivery of a committed task event. It never fails the
// caller; enqueue errors are logged and the event is dropped.
func (d *Dispatcher) Notify(ctx context.Context, task *models.Task, event models.NotificationEvent, actorID uint64) {
	job := NewJob(task.ID, event, actorID)
	if err := d.queue.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		d.logger.Warn("notification dropped",
			"job_id", job.ID,
			"task_id", task.ID,
			"event", event,
			"error", err,
		)
	}
}

// Deliver sends the job's message to every eligible recipient. A failure for
// one recipient does not stop the others and is not retried.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) (Report, error) {
	var report Report

	task, err := d.tasks.FindByID(ctx, job.TaskID, "Assignees")
	if err != nil {
		return report, fmt.Errorf("load task %d: %w", job.TaskID, err)
	}

	recipientIDs := make([]uint64, 0, len(task.Assignees)+1)
	for _, id := range task.RecipientIDs() {
		if id != job.ActorID {
			recipientIDs = append(recipientIDs, id)
		}
	}
	if len(recipientIDs) == 0 {
		return report, nil
	}

	users, err := d.users.FindByIDs(ctx, recipientIDs)
	if err != nil {
		return report, fmt.Errorf("load recipients: %w", err)
	}

	text := FormatMessage(task, job.Event)
	for _, user := range users {
		if user.TelegramID == nil {
			report.Skipped++
			continue
		}

		settings, err := d.settings.GetOrCreate(ctx, user.ID)
		if err != nil {
			report.Failed++
			d.logger.Error("load notification settings", "user_id", user.ID, "error", err)
			continue
		}
		if !settings.Allows(job.Event) {
			report.Skipped++
			continue
		}

		if err := d.send(ctx, *user.TelegramID, text); err != nil {
			report.Failed++
			d.logger.Warn("notification delivery failed",
				"job_id", job.ID,
				"task_id", job.TaskID,
				"user_id", user.ID,
				"error", err,
			)
			continue
		}
		report.Sent++
	}

	return report, nil
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.sender.SendMessage(ctx, chatID, text)
}

// FormatMessage renders the notification text for a task event.
func FormatMessage(task *models.Task, event models.NotificationEvent) string {
	heading := "Task updated"
	if event == models.EventTaskCreated {
		heading = "New task"
	}

	deadline := "none"
	if task.Deadline != nil {
		deadline = task.Deadline.Format(constants.DeadlineLayout)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", heading, task.Title)
	fmt.Fprintf(&b, "Status: %s\n", task.Status.Label())
	fmt.Fprintf(&b, "Deadline: %s", deadline)
	if task.Urgent {
		b.WriteString("\nUrgent")
	}
	return b.String()
}
