package constants

const (
	// ContextKeyUserID is the gin context key holding the authenticated user id.
	ContextKeyUserID = "user_id"

	// ContextKeyGroupID and ContextKeyMembership are set by the group membership middleware.
	ContextKeyGroupID    = "group_id"
	ContextKeyMembership = "membership"

	// SessionKeyAccessToken is the session key holding the issued bearer token.
	SessionKeyAccessToken = "access_token"
	SessionCookieName     = "collab_session"

	HeaderBotAPIKey = "X-Bot-Api-Key"

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// DeadlineLayout is the textual calendar date format accepted for task deadlines.
	DeadlineLayout = "2006-01-02"
	// DefaultDeadlineDays is how far ahead a task deadline lands when none is given.
	DefaultDeadlineDays = 7

	PersonalGroupName = "Personal"
	DefaultFirstName  = "Unnamed"

	MaxAIGeneratedTasks = 20
)
