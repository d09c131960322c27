package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
	"gorm.io/gorm"
)

// taskPreloads are the relations of a full task snapshot.
var taskPreloads = []string{"Responsible", "AssignedBy", "Assignees", "Assignees.User"}

var statusSynonyms = map[string]models.TaskStatus{
	"new":         models.TaskStatusNew,
	"todo":        models.TaskStatusNew,
	"open":        models.TaskStatusNew,
	"новая":       models.TaskStatusNew,
	"in_progress": models.TaskStatusInProgress,
	"inprogress":  models.TaskStatusInProgress,
	"progress":    models.TaskStatusInProgress,
	"doing":       models.TaskStatusInProgress,
	"в_работе":    models.TaskStatusInProgress,
	"postponed":   models.TaskStatusPostponed,
	"deferred":    models.TaskStatusPostponed,
	"later":       models.TaskStatusPostponed,
	"отложена":    models.TaskStatusPostponed,
	"done":        models.TaskStatusDone,
	"completed":   models.TaskStatusDone,
	"closed":      models.TaskStatusDone,
	"готово":      models.TaskStatusDone,
	"выполнена":   models.TaskStatusDone,
}

// NormalizeStatus maps a status or one of its synonyms onto the canonical
// set. Unrecognized values become new.
func NormalizeStatus(raw string) models.TaskStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if status, ok := statusSynonyms[key]; ok {
		return status
	}
	return models.TaskStatusNew
}

// TaskNotifier receives committed task changes.
type TaskNotifier interface {
	Notify(ctx context.Context, task *models.Task, event models.NotificationEvent, actorID uint64)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	membership *MembershipService
	notifier   TaskNotifier
	suggester  TaskSuggester
	now        func() time.Time
}

// NewTaskService creates a new TaskService. notifier and suggester may be nil.
func NewTaskService(taskRepo repository.TaskRepository, membership *MembershipService, notifier TaskNotifier, suggester TaskSuggester) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		membership: membership,
		notifier:   notifier,
		suggester:  suggester,
		now:        time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title         string
	Description   string
	Status        string
	Deadline      *string
	Urgent        bool
	ResponsibleID *uint64
	AssigneeIDs   []uint64
}

// UpdateTaskInput is a partial update; only fields with Set are applied.
type UpdateTaskInput struct {
	Title         utils.Optional[string]
	Description   utils.Optional[string]
	Status        utils.Optional[string]
	Done          utils.Optional[bool]
	Deadline      utils.Optional[string]
	Urgent        utils.Optional[bool]
	ResponsibleID utils.Optional[uint64]
	AssigneeIDs   utils.Optional[[]uint64]
}

// ListTasksInput represents filters for listing a group's tasks
type ListTasksInput struct {
	Status       *string
	AssignedToMe bool
	DueToday     bool
	Pagination   utils.PaginationParams
}

// CreateTask creates a task in the group. Assignees who are not members yet
// are admitted with full capabilities.
func (s *TaskService) CreateTask(ctx context.Context, actorID, groupID uint64, input CreateTaskInput) (*models.Task, error) {
	if _, err := s.membership.RequireTaskAccess(ctx, actorID, groupID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	deadline, err := s.deadlineOrDefault(input.Deadline)
	if err != nil {
		return nil, err
	}

	var explicit uint64
	if input.ResponsibleID != nil {
		explicit = *input.ResponsibleID
	}
	candidates := make([]uint64, 0, len(input.AssigneeIDs)+1)
	if explicit != 0 {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, input.AssigneeIDs...)

	resolved, admit, err := s.membership.PlanAdmissions(ctx, groupID, candidates)
	if err != nil {
		return nil, err
	}

	var responsibleID uint64
	switch {
	case explicit != 0:
		if !containsID(resolved, explicit) {
			return nil, fmt.Errorf("%w: responsible user %d not found", ErrInvalidInput, explicit)
		}
		responsibleID = explicit
	case len(resolved) > 0:
		responsibleID = resolved[0]
	default:
		responsibleID = actorID
	}

	task := &models.Task{
		GroupID:       groupID,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Deadline:      deadline,
		Urgent:        input.Urgent,
		ResponsibleID: responsibleID,
	}
	task.SetStatus(NormalizeStatus(input.Status))
	if actorID != responsibleID {
		task.AssignedByID = &actorID
	}

	if err := s.taskRepo.Create(ctx, task, excludeID(resolved, responsibleID), admit...); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created, err := s.loadTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, created, models.EventTaskCreated, actorID)
	return created, nil
}

// UpdateTask applies a partial update. When both status and done are
// present, done is applied last.
func (s *TaskService) UpdateTask(ctx context.Context, actorID, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.membership.RequireTaskAccess(ctx, actorID, task.GroupID); err != nil {
		return nil, err
	}

	if input.Title.Set {
		if input.Title.Value == nil || strings.TrimSpace(*input.Title.Value) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		task.Title = strings.TrimSpace(*input.Title.Value)
	}
	if input.Description.Set {
		task.Description = ""
		if input.Description.Value != nil {
			task.Description = strings.TrimSpace(*input.Description.Value)
		}
	}
	if input.Urgent.Set && input.Urgent.Value != nil {
		task.Urgent = *input.Urgent.Value
	}
	if input.Deadline.Set {
		task.Deadline = nil
		if input.Deadline.Value != nil && strings.TrimSpace(*input.Deadline.Value) != "" {
			deadline, err := parseDeadline(*input.Deadline.Value)
			if err != nil {
				return nil, err
			}
			task.Deadline = &deadline
		}
	}

	responsibleChanged := input.ResponsibleID.Set && input.ResponsibleID.Value != nil && *input.ResponsibleID.Value != task.ResponsibleID
	var requested []uint64
	if input.AssigneeIDs.Set && input.AssigneeIDs.Value != nil {
		requested = *input.AssigneeIDs.Value
	}
	candidates := make([]uint64, 0, len(requested)+1)
	if responsibleChanged {
		candidates = append(candidates, *input.ResponsibleID.Value)
	}
	candidates = append(candidates, requested...)

	resolved, admit, err := s.membership.PlanAdmissions(ctx, task.GroupID, candidates)
	if err != nil {
		return nil, err
	}

	previousResponsible := task.ResponsibleID
	if responsibleChanged {
		responsibleID := *input.ResponsibleID.Value
		if !containsID(resolved, responsibleID) {
			return nil, fmt.Errorf("%w: responsible user %d not found", ErrInvalidInput, responsibleID)
		}
		task.ResponsibleID = responsibleID
		task.AssignedByID = nil
		if actorID != responsibleID {
			task.AssignedByID = &actorID
		}
	}

	if input.Status.Set && input.Status.Value != nil {
		task.SetStatus(NormalizeStatus(*input.Status.Value))
	}
	if input.Done.Set && input.Done.Value != nil {
		task.SetDone(*input.Done.Value)
	}

	var replacement *[]uint64
	switch {
	case input.AssigneeIDs.Set:
		extras := make([]uint64, 0, len(resolved))
		for _, id := range resolved {
			if containsID(requested, id) && id != task.ResponsibleID {
				extras = append(extras, id)
			}
		}
		replacement = &extras
	case responsibleChanged:
		// the replaced responsible user stays on the task as an extra
		current := make([]uint64, 0, len(task.Assignees)+1)
		for _, a := range task.Assignees {
			current = append(current, a.UserID)
		}
		current = append(current, previousResponsible)
		extras := excludeID(dedupeIDs(current), task.ResponsibleID)
		replacement = &extras
	}

	if err := s.taskRepo.Update(ctx, task, replacement, admit...); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	updated, err := s.loadTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, models.EventTaskUpdated, actorID)
	return updated, nil
}

// GetTask returns a full task snapshot to a member of its group
func (s *TaskService) GetTask(ctx context.Context, actorID, taskID uint64) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.RequireMember(ctx, actorID, task.GroupID); err != nil {
		return nil, err
	}
	return task, nil
}

// ListGroupTasks returns a page of the group's tasks ordered by deadline
func (s *TaskService) ListGroupTasks(ctx context.Context, actorID, groupID uint64, input ListTasksInput) ([]models.Task, int64, error) {
	if _, err := s.membership.RequireMember(ctx, actorID, groupID); err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		GroupID:    groupID,
		Pagination: input.Pagination,
	}
	if input.Status != nil && strings.TrimSpace(*input.Status) != "" {
		status := NormalizeStatus(*input.Status)
		filter.Status = &status
	}
	if input.AssignedToMe {
		filter.AssignedUserID = &actorID
	}
	if input.DueToday {
		today := s.today()
		tomorrow := today.AddDate(0, 0, 1)
		filter.DeadlineFrom = &today
		filter.DeadlineTo = &tomorrow
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// SuggestTasks drafts tasks from free text for a member with task access.
// Nothing is persisted.
func (s *TaskService) SuggestTasks(ctx context.Context, actorID, groupID uint64, text string) ([]GeneratedTask, error) {
	if _, err := s.membership.RequireTaskAccess(ctx, actorID, groupID); err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	generated, err := s.suggester.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, err
	}

	drafts := make([]GeneratedTask, 0, len(generated))
	for _, g := range generated {
		g.Title = strings.TrimSpace(g.Title)
		if g.Title == "" {
			continue
		}
		if g.Deadline != "" {
			if _, err := parseDeadline(g.Deadline); err != nil {
				g.Deadline = ""
			}
		}
		drafts = append(drafts, g)
		if len(drafts) == constants.MaxAIGeneratedTasks {
			break
		}
	}
	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	return drafts, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, taskPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) notify(ctx context.Context, task *models.Task, event models.NotificationEvent, actorID uint64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, task, event, actorID)
}

func (s *TaskService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *TaskService) deadlineOrDefault(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		deadline := s.today().AddDate(0, 0, constants.DefaultDeadlineDays)
		return &deadline, nil
	}
	deadline, err := parseDeadline(*raw)
	if err != nil {
		return nil, err
	}
	return &deadline, nil
}

func parseDeadline(raw string) (time.Time, error) {
	deadline, err := time.ParseInLocation(constants.DeadlineLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deadline must be YYYY-MM-DD", ErrInvalidInput)
	}
	return deadline, nil
}

func containsID(ids []uint64, id uint64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func excludeID(ids []uint64, exclude uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
