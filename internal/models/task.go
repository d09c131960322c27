package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusPostponed  TaskStatus = "postponed"
	TaskStatusDone       TaskStatus = "done"
)

var taskStatusLabels = map[TaskStatus]string{
	TaskStatusNew:        "New",
	TaskStatusInProgress: "In progress",
	TaskStatusPostponed:  "Postponed",
	TaskStatusDone:       "Done",
}

// Label returns the human readable status name.
func (s TaskStatus) Label() string {
	if label, ok := taskStatusLabels[s]; ok {
		return label
	}
	return taskStatusLabels[TaskStatusNew]
}

type Task struct {
	ID            uint64     `gorm:"primarykey" json:"id"`
	GroupID       uint64     `gorm:"not null;index" json:"group_id"`
	Title         string     `gorm:"type:varchar(256);not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Status        TaskStatus `gorm:"type:varchar(32);not null;default:'new'" json:"status"`
	Done          bool       `gorm:"not null" json:"done"`
	Deadline      *time.Time `gorm:"type:date;index" json:"deadline"`
	Urgent        bool       `gorm:"not null" json:"urgent"`
	ResponsibleID uint64     `gorm:"not null;index" json:"responsible_id"`
	AssignedByID  *uint64    `json:"assigned_by_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relations
	Group       Group          `gorm:"foreignKey:GroupID" json:"-"`
	Responsible User           `gorm:"foreignKey:ResponsibleID" json:"-"`
	AssignedBy  *User          `gorm:"foreignKey:AssignedByID" json:"-"`
	Assignees   []TaskAssignee `gorm:"foreignKey:TaskID" json:"-"`
}

// SetStatus changes the status and keeps Done in agreement with it.
func (t *Task) SetStatus(status TaskStatus) {
	t.Status = status
	t.Done = status == TaskStatusDone
}

// SetDone changes Done and keeps Status in agreement with it. Clearing Done on
// a finished task reopens it as new.
func (t *Task) SetDone(done bool) {
	t.Done = done
	switch {
	case done:
		t.Status = TaskStatusDone
	case t.Status == TaskStatusDone:
		t.Status = TaskStatusNew
	}
}

// RecipientIDs returns the responsible user followed by the extra assignees.
func (t Task) RecipientIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignees)+1)
	ids = append(ids, t.ResponsibleID)
	for _, a := range t.Assignees {
		if a.UserID != t.ResponsibleID {
			ids = append(ids, a.UserID)
		}
	}
	return ids
}
