package dto

import (
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                  uint64            `json:"id"`
	GroupID             uint64            `json:"group_id"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	Status              models.TaskStatus `json:"status"`
	StatusLabel         string            `json:"status_label"`
	Done                bool              `json:"done"`
	Deadline            *string           `json:"deadline"`
	Urgent              bool              `json:"urgent"`
	ResponsibleID       uint64            `json:"responsible_id"`
	Responsible         *UserDTO          `json:"responsible,omitempty"`
	AssignedBy          *UserDTO          `json:"assigned_by,omitempty"`
	AdditionalAssignees []UserDTO         `json:"additional_assignees"`
	// Assignees is the responsible user followed by the additional assignees
	Assignees []UserDTO `json:"assignees"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	OK         bool                     `json:"ok"`
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CreateTaskRequest is the body of a task creation request
type CreateTaskRequest struct {
	Title         string   `json:"title" binding:"required,max=256"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Deadline      *string  `json:"deadline"`
	Urgent        bool     `json:"urgent"`
	ResponsibleID *uint64  `json:"responsible_id"`
	AssigneeIDs   []uint64 `json:"assignee_ids"`
}

// UpdateTaskRequest is a partial update; absent keys are left untouched and
// null clears where that makes sense
type UpdateTaskRequest struct {
	Title         utils.Optional[string]   `json:"title"`
	Description   utils.Optional[string]   `json:"description"`
	Status        utils.Optional[string]   `json:"status"`
	Done          utils.Optional[bool]     `json:"done"`
	Deadline      utils.Optional[string]   `json:"deadline"`
	Urgent        utils.Optional[bool]     `json:"urgent"`
	ResponsibleID utils.Optional[uint64]   `json:"responsible_id"`
	AssigneeIDs   utils.Optional[[]uint64] `json:"assignee_ids"`
}

// SuggestTasksRequest carries free text for AI task extraction
type SuggestTasksRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

// ToCreateTaskInput converts the request into service input
func (r CreateTaskRequest) ToCreateTaskInput() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		Deadline:      r.Deadline,
		Urgent:        r.Urgent,
		ResponsibleID: r.ResponsibleID,
		AssigneeIDs:   r.AssigneeIDs,
	}
}

// ToUpdateTaskInput converts the request into service input
func (r UpdateTaskRequest) ToUpdateTaskInput() services.UpdateTaskInput {
	return services.UpdateTaskInput{
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		Done:          r.Done,
		Deadline:      r.Deadline,
		Urgent:        r.Urgent,
		ResponsibleID: r.ResponsibleID,
		AssigneeIDs:   r.AssigneeIDs,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                  task.ID,
		GroupID:             task.GroupID,
		Title:               task.Title,
		Description:         task.Description,
		Status:              task.Status,
		StatusLabel:         task.Status.Label(),
		Done:                task.Done,
		Urgent:              task.Urgent,
		ResponsibleID:       task.ResponsibleID,
		AdditionalAssignees: []UserDTO{},
		Assignees:           []UserDTO{},
		CreatedAt:           task.CreatedAt,
		UpdatedAt:           task.UpdatedAt,
	}

	if task.Deadline != nil {
		deadline := task.Deadline.Format(constants.DeadlineLayout)
		dto.Deadline = &deadline
	}

	// Include responsible user if preloaded
	if task.Responsible.ID != 0 {
		responsible := ToUserDTO(task.Responsible)
		dto.Responsible = &responsible
		dto.Assignees = append(dto.Assignees, responsible)
	}

	if task.AssignedBy != nil && task.AssignedBy.ID != 0 {
		assignedBy := ToUserDTO(*task.AssignedBy)
		dto.AssignedBy = &assignedBy
	}

	// Include assignees if preloaded
	for _, a := range task.Assignees {
		if a.User.ID == 0 {
			continue
		}
		user := ToUserDTO(a.User)
		dto.AdditionalAssignees = append(dto.AdditionalAssignees, user)
		dto.Assignees = append(dto.Assignees, user)
	}

	return dto
}

// ToTaskListResponse converts a page of tasks
func ToTaskListResponse(tasks []models.Task, page utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		OK:         true,
		Tasks:      items,
		Pagination: page.Response(total),
	}
}
