package services

import "errors"

var (
	ErrInvalidClaim         = errors.New("invalid identity claim")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
	ErrNotAMember           = errors.New("user is not a member of the group")
	ErrGroupNotFound        = errors.New("group not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMemberNotFound       = errors.New("group member not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInviteAlreadyDecided = errors.New("invite already decided")
	ErrTaskNotFound         = errors.New("task not found")
	ErrCannotRemoveOwner    = errors.New("cannot remove the group owner")

	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
)
