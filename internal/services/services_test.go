package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-miniapp-api/internal/auth"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/telegram"
	"github.com/yukikurage/collab-miniapp-api/internal/testutil"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
	"gorm.io/gorm"
)

const testBotToken = "123456:TEST-token"

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type notification struct {
	TaskID  uint64
	Event   models.NotificationEvent
	ActorID uint64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) Notify(_ context.Context, task *models.Task, event models.NotificationEvent, actorID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{TaskID: task.ID, Event: event, ActorID: actorID})
}

type stubSuggester struct {
	tasks []GeneratedTask
	err   error
}

func (s stubSuggester) GenerateTasksFromText(context.Context, string) ([]GeneratedTask, error) {
	return s.tasks, s.err
}

type ServicesTestSuite struct {
	suite.Suite
	ctx        context.Context
	db         *gorm.DB
	notifier   *recordingNotifier
	identity   *IdentityService
	membership *MembershipService
	invites    *InviteService
	tasks      *TaskService
	settings   *SettingsService
	tokens     *auth.TokenIssuer
}

func (suite *ServicesTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewTestDB(suite.T())
	suite.notifier = &recordingNotifier{}

	userRepo := repository.NewUserRepository(suite.db)
	groupRepo := repository.NewGroupRepository(suite.db)

	clock := func() time.Time { return fixedNow }
	suite.tokens = auth.NewTokenIssuer("jwt-secret", time.Hour).WithClock(clock)
	verifier := telegram.NewInitDataVerifier(testBotToken, 24*time.Hour).WithClock(clock)

	suite.membership = NewMembershipService(groupRepo, userRepo)
	suite.identity = NewIdentityService(userRepo, suite.membership, verifier, suite.tokens)
	suite.invites = NewInviteService(repository.NewInviteRepository(suite.db), userRepo, suite.membership, "https://app.example.com/")
	suite.invites.now = clock
	suite.tasks = NewTaskService(repository.NewTaskRepository(suite.db), suite.membership, suite.notifier, nil)
	suite.tasks.now = clock
	suite.settings = NewSettingsService(repository.NewSettingsRepository(suite.db))
}

func (suite *ServicesTestSuite) createUser(tgID int64, username string) *models.User {
	user, err := suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{ID: tgID, FirstName: "User" + strconv.FormatInt(tgID, 10), Username: username})
	suite.Require().NoError(err)
	return user
}

func (suite *ServicesTestSuite) createGroup(owner *models.User) *models.Group {
	group, err := suite.membership.CreateGroup(suite.ctx, owner.ID, "Team")
	suite.Require().NoError(err)
	return group
}

func (suite *ServicesTestSuite) createTask(actor *models.User, groupID uint64, input CreateTaskInput) *models.Task {
	if input.Title == "" {
		input.Title = "Task"
	}
	task, err := suite.tasks.CreateTask(suite.ctx, actor.ID, groupID, input)
	suite.Require().NoError(err)
	return task
}

func (suite *ServicesTestSuite) countRows(model interface{}, query string, args ...interface{}) int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

func uint64Ptr(v uint64) *uint64 { return &v }
func strPtr(v string) *string    { return &v }

// Identity

func (suite *ServicesTestSuite) TestLogin_IssuesCredentialAndPersonalGroup() {
	fields := map[string]string{
		"auth_date": strconv.FormatInt(fixedNow.Add(-time.Minute).Unix(), 10),
		"query_id":  "AAE",
		"user":      `{"id":777,"first_name":"Ann","username":"ann"}`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", telegram.Sign(testBotToken, fields))

	result, err := suite.identity.Login(suite.ctx, values.Encode())
	suite.Require().NoError(err)
	suite.Equal("Ann", result.User.FirstName)
	suite.NotZero(result.DefaultGroupID)
	suite.Equal(fixedNow.Add(time.Hour), result.ExpiresAt)

	userID, err := suite.tokens.Parse(result.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(result.User.ID, userID)

	again, err := suite.identity.Login(suite.ctx, values.Encode())
	suite.Require().NoError(err)
	suite.Equal(result.DefaultGroupID, again.DefaultGroupID)
	suite.Equal(result.User.ID, again.User.ID)
}

func (suite *ServicesTestSuite) TestLogin_RejectsTamperedPayload() {
	fields := map[string]string{
		"auth_date": strconv.FormatInt(fixedNow.Unix(), 10),
		"user":      `{"id":777}`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", telegram.Sign(testBotToken, fields))
	values.Set("user", `{"id":778}`)

	_, err := suite.identity.Login(suite.ctx, values.Encode())
	suite.ErrorIs(err, telegram.ErrVerificationFailed)
	suite.Equal(int64(0), suite.countRows(&models.User{}, "1 = 1"))
}

func (suite *ServicesTestSuite) TestResolveOrCreate_RequiresID() {
	_, err := suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{FirstName: "NoID"})
	suite.ErrorIs(err, ErrInvalidClaim)
}

func (suite *ServicesTestSuite) TestResolveOrCreate_DefaultsAndRefresh() {
	user, err := suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{ID: 5})
	suite.Require().NoError(err)
	suite.Equal("Unnamed", user.FirstName)

	user, err = suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{ID: 5, FirstName: "Eve", Username: "eve"})
	suite.Require().NoError(err)
	suite.Equal("Eve", user.FirstName)
	suite.Equal("eve", user.Username)

	// empty claim values never erase known ones
	user, err = suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{ID: 5})
	suite.Require().NoError(err)
	suite.Equal("Eve", user.FirstName)
	suite.Equal("eve", user.Username)
}

func (suite *ServicesTestSuite) TestResolveOrCreate_ConcurrentSameID() {
	var wg sync.WaitGroup
	ids := make([]uint64, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := suite.identity.ResolveOrCreate(suite.ctx, telegram.Claim{ID: 99, FirstName: "Racer"})
			if assert.NoError(suite.T(), err) {
				ids[i] = user.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		suite.Equal(ids[0], id)
	}
	suite.Equal(int64(1), suite.countRows(&models.User{}, "telegram_id = ?", 99))
}

// Membership

func (suite *ServicesTestSuite) TestEnsurePersonalGroup_Idempotent() {
	user := suite.createUser(1, "one")

	first, err := suite.membership.EnsurePersonalGroup(suite.ctx, user.ID)
	suite.Require().NoError(err)
	second, err := suite.membership.EnsurePersonalGroup(suite.ctx, user.ID)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(int64(1), suite.countRows(&models.Membership{}, "group_id = ?", first))

	member, err := suite.membership.RequireMember(suite.ctx, user.ID, first)
	suite.Require().NoError(err)
	suite.True(member.CanTasks)
	suite.True(member.CanFinance)
}

func (suite *ServicesTestSuite) TestCreateGroup_BlankName() {
	user := suite.createUser(1, "one")
	_, err := suite.membership.CreateGroup(suite.ctx, user.ID, "   ")
	suite.ErrorIs(err, ErrInvalidInput)
}

func (suite *ServicesTestSuite) TestRequireMember_NotAMember() {
	owner := suite.createUser(1, "owner")
	stranger := suite.createUser(2, "stranger")
	group := suite.createGroup(owner)

	_, err := suite.membership.RequireMember(suite.ctx, stranger.ID, group.ID)
	suite.ErrorIs(err, ErrNotAMember)
}

func (suite *ServicesTestSuite) TestListGroupsForUser() {
	owner := suite.createUser(1, "owner")
	_, err := suite.membership.EnsurePersonalGroup(suite.ctx, owner.ID)
	suite.Require().NoError(err)
	team := suite.createGroup(owner)
	other := suite.createUser(2, "other")
	_, err = suite.membership.EnsureMembersFor(suite.ctx, team.ID, []uint64{other.ID})
	suite.Require().NoError(err)

	groups, err := suite.membership.ListGroupsForUser(suite.ctx, owner.ID)
	suite.Require().NoError(err)
	suite.Require().Len(groups, 2)
	suite.True(groups[1].IsOwner)
	suite.Equal(int64(2), groups[1].MembersCount)
	suite.Equal("Team", groups[1].Group.Name)
}

func (suite *ServicesTestSuite) TestUpdateCapabilitiesAndRemove() {
	owner := suite.createUser(1, "owner")
	member := suite.createUser(2, "member")
	group := suite.createGroup(owner)
	_, err := suite.membership.EnsureMembersFor(suite.ctx, group.ID, []uint64{member.ID})
	suite.Require().NoError(err)

	off := false
	updated, err := suite.membership.UpdateCapabilities(suite.ctx, owner.ID, group.ID, member.ID, CapabilityPatch{CanFinance: &off})
	suite.Require().NoError(err)
	suite.True(updated.CanTasks)
	suite.False(updated.CanFinance)

	_, err = suite.membership.UpdateCapabilities(suite.ctx, member.ID, group.ID, member.ID, CapabilityPatch{CanTasks: &off})
	suite.ErrorIs(err, ErrForbidden)

	suite.ErrorIs(suite.membership.RemoveMember(suite.ctx, owner.ID, group.ID, owner.ID), ErrCannotRemoveOwner)
	suite.Require().NoError(suite.membership.RemoveMember(suite.ctx, owner.ID, group.ID, member.ID))
	_, err = suite.membership.RequireMember(suite.ctx, member.ID, group.ID)
	suite.ErrorIs(err, ErrNotAMember)
}

func (suite *ServicesTestSuite) TestEnsureMembersFor_SkipsUnknownIDs() {
	owner := suite.createUser(1, "owner")
	known := suite.createUser(2, "known")
	group := suite.createGroup(owner)

	resolved, err := suite.membership.EnsureMembersFor(suite.ctx, group.ID, []uint64{known.ID, 4242, known.ID, 0})
	suite.Require().NoError(err)
	suite.Equal([]uint64{known.ID}, resolved)
	suite.Equal(int64(2), suite.countRows(&models.Membership{}, "group_id = ?", group.ID))
}

// Invites

func (suite *ServicesTestSuite) TestHandleInvite_OwnerOnlyAndNormalized() {
	owner := suite.createUser(1, "owner")
	other := suite.createUser(2, "other")
	group := suite.createGroup(owner)

	_, _, err := suite.invites.CreateHandleInvite(suite.ctx, other.ID, group.ID, "bob")
	suite.ErrorIs(err, ErrForbidden)

	_, _, err = suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, "  @ ")
	suite.ErrorIs(err, ErrInvalidInput)

	invite, created, err := suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, " @Bob ")
	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal("bob", invite.Handle)
}

func (suite *ServicesTestSuite) TestHandleInvite_PendingDeduplication() {
	owner := suite.createUser(1, "owner")
	bob := suite.createUser(2, "Bob")
	group := suite.createGroup(owner)

	first, _, err := suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, "bob")
	suite.Require().NoError(err)
	second, created, err := suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, "@BOB")
	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(first.ID, second.ID)

	_, err = suite.invites.DeclineInvite(suite.ctx, first.ID, bob.ID)
	suite.Require().NoError(err)

	third, created, err := suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, "bob")
	suite.Require().NoError(err)
	suite.True(created)
	suite.NotEqual(first.ID, third.ID)
}

func (suite *ServicesTestSuite) TestHandleInvite_AcceptAndTerminal() {
	owner := suite.createUser(1, "owner")
	bob := suite.createUser(2, "bob")
	mallory := suite.createUser(3, "mallory")
	group := suite.createGroup(owner)

	invite, _, err := suite.invites.CreateHandleInvite(suite.ctx, owner.ID, group.ID, "bob")
	suite.Require().NoError(err)

	pending, err := suite.invites.ListPendingForUser(suite.ctx, bob.ID)
	suite.Require().NoError(err)
	suite.Require().Len(pending, 1)
	suite.Equal(invite.ID, pending[0].ID)

	_, err = suite.invites.AcceptInvite(suite.ctx, invite.ID, mallory.ID)
	suite.ErrorIs(err, ErrForbidden)

	accepted, err := suite.invites.AcceptInvite(suite.ctx, invite.ID, bob.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InviteStatusAccepted, accepted.Status)
	suite.Require().NotNil(accepted.DecidedAt)
	suite.True(accepted.DecidedAt.Equal(fixedNow))

	member, err := suite.membership.RequireMember(suite.ctx, bob.ID, group.ID)
	suite.Require().NoError(err)
	suite.True(member.CanTasks)
	suite.True(member.CanFinance)

	_, err = suite.invites.AcceptInvite(suite.ctx, invite.ID, bob.ID)
	suite.ErrorIs(err, ErrInviteAlreadyDecided)
	_, err = suite.invites.DeclineInvite(suite.ctx, invite.ID, bob.ID)
	suite.ErrorIs(err, ErrInviteAlreadyDecided)
}

func (suite *ServicesTestSuite) TestTokenInvite_SingleUse() {
	owner := suite.createUser(1, "owner")
	joiner := suite.createUser(2, "joiner")
	late := suite.createUser(3, "late")
	group := suite.createGroup(owner)

	invite, err := suite.invites.CreateTokenInvite(suite.ctx, owner.ID, group.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(invite.Token)
	suite.Equal("https://app.example.com/?invite="+*invite.Token, suite.invites.InviteLink(*invite.Token))

	_, err = suite.invites.AcceptTokenInvite(suite.ctx, *invite.Token, joiner.ID)
	suite.Require().NoError(err)

	_, err = suite.invites.AcceptTokenInvite(suite.ctx, *invite.Token, late.ID)
	suite.ErrorIs(err, ErrInviteAlreadyDecided)
	_, err = suite.invites.DeclineTokenInvite(suite.ctx, *invite.Token, late.ID)
	suite.ErrorIs(err, ErrInviteAlreadyDecided)
}

func (suite *ServicesTestSuite) TestAcceptInvite_IdempotentMembership() {
	owner := suite.createUser(1, "owner")
	group := suite.createGroup(owner)

	invite, err := suite.invites.CreateTokenInvite(suite.ctx, owner.ID, group.ID)
	suite.Require().NoError(err)
	_, err = suite.invites.AcceptInvite(suite.ctx, invite.ID, owner.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), suite.countRows(&models.Membership{}, "group_id = ?", group.ID))
}

func (suite *ServicesTestSuite) TestInviteNotFound() {
	user := suite.createUser(1, "u")
	_, err := suite.invites.AcceptInvite(suite.ctx, 12345, user.ID)
	suite.ErrorIs(err, ErrInviteNotFound)
	_, err = suite.invites.DeclineTokenInvite(suite.ctx, "missing", user.ID)
	suite.ErrorIs(err, ErrInviteNotFound)
}

// Tasks

func (suite *ServicesTestSuite) TestNormalizeStatus() {
	tests := map[string]models.TaskStatus{
		"":            models.TaskStatusNew,
		"In Progress": models.TaskStatusInProgress,
		"in-progress": models.TaskStatusInProgress,
		"DONE":        models.TaskStatusDone,
		"Отложена":    models.TaskStatusPostponed,
		"whatever":    models.TaskStatusNew,
	}
	for raw, want := range tests {
		suite.Equal(want, NormalizeStatus(raw), raw)
	}
}

func (suite *ServicesTestSuite) TestCreateTask_Defaults() {
	owner := suite.createUser(1, "owner")
	group := suite.createGroup(owner)

	task := suite.createTask(owner, group.ID, CreateTaskInput{Title: "  Buy milk  "})
	suite.Equal("Buy milk", task.Title)
	suite.Equal(models.TaskStatusNew, task.Status)
	suite.False(task.Done)
	suite.Equal(owner.ID, task.ResponsibleID)
	suite.Nil(task.AssignedByID)
	suite.Require().NotNil(task.Deadline)
	suite.Equal("2026-10-24", task.Deadline.Format("2006-01-02"))
	suite.Empty(task.Assignees)
}

func (suite *ServicesTestSuite) TestCreateTask_Validation() {
	owner := suite.createUser(1, "owner")
	stranger := suite.createUser(2, "stranger")
	group := suite.createGroup(owner)

	_, err := suite.tasks.CreateTask(suite.ctx, owner.ID, group.ID, CreateTaskInput{Title: " "})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.tasks.CreateTask(suite.ctx, owner.ID, group.ID, CreateTaskInput{Title: "x", Deadline: strPtr("24/10/2026")})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.tasks.CreateTask(suite.ctx, stranger.ID, group.ID, CreateTaskInput{Title: "x"})
	suite.ErrorIs(err, ErrNotAMember)

	off := false
	_, err = suite.membership.EnsureMembersFor(suite.ctx, group.ID, []uint64{stranger.ID})
	suite.Require().NoError(err)
	_, err = suite.membership.UpdateCapabilities(suite.ctx, owner.ID, group.ID, stranger.ID, CapabilityPatch{CanTasks: &off})
	suite.Require().NoError(err)
	_, err = suite.tasks.CreateTask(suite.ctx, stranger.ID, group.ID, CreateTaskInput{Title: "x"})
	suite.ErrorIs(err, ErrForbidden)
}

func (suite *ServicesTestSuite) TestCreateTask_OnboardsAssignees() {
	owner := suite.createUser(1, "owner")
	outsider := suite.createUser(42, "outsider")
	group := suite.createGroup(owner)

	task := suite.createTask(owner, group.ID, CreateTaskInput{AssigneeIDs: []uint64{outsider.ID, 9999}})

	// the first extra becomes responsible when none is given
	suite.Equal(outsider.ID, task.ResponsibleID)
	suite.Require().NotNil(task.AssignedByID)
	suite.Equal(owner.ID, *task.AssignedByID)
	suite.Empty(task.Assignees)

	member, err := suite.membership.RequireMember(suite.ctx, outsider.ID, group.ID)
	suite.Require().NoError(err)
	suite.True(member.CanTasks)
	suite.True(member.CanFinance)

	suite.Require().Len(suite.notifier.calls, 1)
	suite.Equal(notification{TaskID: task.ID, Event: models.EventTaskCreated, ActorID: owner.ID}, suite.notifier.calls[0])
}

func (suite *ServicesTestSuite) TestCreateTask_ResponsibleNotDuplicated() {
	owner := suite.createUser(1, "owner")
	a := suite.createUser(2, "a")
	b := suite.createUser(3, "b")
	group := suite.createGroup(owner)

	task := suite.createTask(owner, group.ID, CreateTaskInput{
		ResponsibleID: uint64Ptr(a.ID),
		AssigneeIDs:   []uint64{a.ID, b.ID},
	})
	suite.Equal(a.ID, task.ResponsibleID)
	suite.Require().Len(task.Assignees, 1)
	suite.Equal(b.ID, task.Assignees[0].UserID)

	_, err := suite.tasks.CreateTask(suite.ctx, owner.ID, group.ID, CreateTaskInput{Title: "x", ResponsibleID: uint64Ptr(31337)})
	suite.ErrorIs(err, ErrInvalidInput)
}

func (suite *ServicesTestSuite) TestCreateTask_UnknownResponsibleAdmitsNobody() {
	owner := suite.createUser(1, "owner")
	outsider := suite.createUser(42, "outsider")
	group := suite.createGroup(owner)

	_, err := suite.tasks.CreateTask(suite.ctx, owner.ID, group.ID, CreateTaskInput{
		Title:         "x",
		ResponsibleID: uint64Ptr(9999),
		AssigneeIDs:   []uint64{outsider.ID},
	})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.membership.RequireMember(suite.ctx, outsider.ID, group.ID)
	suite.ErrorIs(err, ErrNotAMember)
	suite.Empty(suite.notifier.calls)
}

func (suite *ServicesTestSuite) TestUpdateTask_UnknownResponsibleAdmitsNobody() {
	owner := suite.createUser(1, "owner")
	outsider := suite.createUser(42, "outsider")
	group := suite.createGroup(owner)
	task := suite.createTask(owner, group.ID, CreateTaskInput{})

	_, err := suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{
		ResponsibleID: utils.Some(uint64(9999)),
		AssigneeIDs:   utils.Some([]uint64{outsider.ID}),
	})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.membership.RequireMember(suite.ctx, outsider.ID, group.ID)
	suite.ErrorIs(err, ErrNotAMember)

	unchanged, err := suite.tasks.GetTask(suite.ctx, owner.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(owner.ID, unchanged.ResponsibleID)
	suite.Empty(unchanged.Assignees)
}

func (suite *ServicesTestSuite) TestUpdateTask_ResponsibleSwapKeepsPrevious() {
	owner := suite.createUser(1, "owner")
	a := suite.createUser(2, "a")
	b := suite.createUser(3, "b")
	group := suite.createGroup(owner)
	task := suite.createTask(owner, group.ID, CreateTaskInput{
		ResponsibleID: uint64Ptr(a.ID),
		AssigneeIDs:   []uint64{b.ID},
	})

	updated, err := suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{ResponsibleID: utils.Some(b.ID)})
	suite.Require().NoError(err)
	suite.Equal(b.ID, updated.ResponsibleID)
	suite.Equal([]uint64{a.ID}, assigneeIDs(updated))
	suite.Equal([]uint64{b.ID, a.ID}, updated.RecipientIDs())
}

func (suite *ServicesTestSuite) TestUpdateTask_StatusDoneSync() {
	owner := suite.createUser(1, "owner")
	group := suite.createGroup(owner)
	task := suite.createTask(owner, group.ID, CreateTaskInput{})

	updated, err := suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Done: utils.Some(true)})
	suite.Require().NoError(err)
	suite.True(updated.Done)
	suite.Equal(models.TaskStatusDone, updated.Status)

	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Status: utils.Some("postponed")})
	suite.Require().NoError(err)
	suite.False(updated.Done)
	suite.Equal(models.TaskStatusPostponed, updated.Status)

	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Status: utils.Some("done")})
	suite.Require().NoError(err)
	suite.True(updated.Done)

	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Done: utils.Some(false)})
	suite.Require().NoError(err)
	suite.False(updated.Done)
	suite.Equal(models.TaskStatusNew, updated.Status)

	// done is applied after status
	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{
		Status: utils.Some("in_progress"),
		Done:   utils.Some(true),
	})
	suite.Require().NoError(err)
	suite.True(updated.Done)
	suite.Equal(models.TaskStatusDone, updated.Status)
}

func (suite *ServicesTestSuite) TestUpdateTask_PartialFieldsAndDeadline() {
	owner := suite.createUser(1, "owner")
	group := suite.createGroup(owner)
	task := suite.createTask(owner, group.ID, CreateTaskInput{Title: "Keep", Description: "desc", Urgent: true})

	updated, err := suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Deadline: utils.Some("2026-12-31")})
	suite.Require().NoError(err)
	suite.Equal("Keep", updated.Title)
	suite.Equal("desc", updated.Description)
	suite.True(updated.Urgent)
	suite.Require().NotNil(updated.Deadline)
	suite.Equal("2026-12-31", updated.Deadline.Format("2006-01-02"))

	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Deadline: utils.Null[string]()})
	suite.Require().NoError(err)
	suite.Nil(updated.Deadline)

	_, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Deadline: utils.Some("tomorrow")})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{Title: utils.Some("")})
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, 999, UpdateTaskInput{})
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *ServicesTestSuite) TestUpdateTask_AssigneesExcludeResponsible() {
	owner := suite.createUser(1, "owner")
	a := suite.createUser(2, "a")
	b := suite.createUser(3, "b")
	group := suite.createGroup(owner)
	task := suite.createTask(owner, group.ID, CreateTaskInput{})

	updated, err := suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{
		AssigneeIDs: utils.Some([]uint64{owner.ID, a.ID, b.ID, 5555}),
	})
	suite.Require().NoError(err)
	suite.Equal(owner.ID, updated.ResponsibleID)
	suite.ElementsMatch([]uint64{a.ID, b.ID}, assigneeIDs(updated))

	// moving responsibility to an extra removes it from the extras and keeps
	// the previous responsible user on the task
	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{ResponsibleID: utils.Some(a.ID)})
	suite.Require().NoError(err)
	suite.Equal(a.ID, updated.ResponsibleID)
	suite.ElementsMatch([]uint64{b.ID, owner.ID}, assigneeIDs(updated))

	updated, err = suite.tasks.UpdateTask(suite.ctx, owner.ID, task.ID, UpdateTaskInput{AssigneeIDs: utils.Null[[]uint64]()})
	suite.Require().NoError(err)
	suite.Empty(updated.Assignees)

	suite.Require().Len(suite.notifier.calls, 4)
	suite.Equal(models.EventTaskUpdated, suite.notifier.calls[3].Event)
}

func (suite *ServicesTestSuite) TestGetAndListTasks() {
	owner := suite.createUser(1, "owner")
	a := suite.createUser(2, "a")
	stranger := suite.createUser(3, "stranger")
	group := suite.createGroup(owner)

	today := suite.createTask(owner, group.ID, CreateTaskInput{Title: "today", Deadline: strPtr("2026-10-17")})
	suite.createTask(owner, group.ID, CreateTaskInput{Title: "later", AssigneeIDs: []uint64{a.ID}})
	suite.createTask(owner, group.ID, CreateTaskInput{Title: "done", Status: "done"})

	_, err := suite.tasks.GetTask(suite.ctx, stranger.ID, today.ID)
	suite.ErrorIs(err, ErrNotAMember)

	got, err := suite.tasks.GetTask(suite.ctx, owner.ID, today.ID)
	suite.Require().NoError(err)
	suite.Equal("today", got.Title)
	suite.Equal(owner.ID, got.Responsible.ID)

	all, total, err := suite.tasks.ListGroupTasks(suite.ctx, owner.ID, group.ID, ListTasksInput{Pagination: utils.NewPaginationParams(1, 2)})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Require().Len(all, 2)
	suite.Equal("today", all[0].Title)

	due, total, err := suite.tasks.ListGroupTasks(suite.ctx, owner.ID, group.ID, ListTasksInput{DueToday: true})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(today.ID, due[0].ID)

	mine, _, err := suite.tasks.ListGroupTasks(suite.ctx, a.ID, group.ID, ListTasksInput{AssignedToMe: true})
	suite.Require().NoError(err)
	suite.Require().Len(mine, 1)
	suite.Equal("later", mine[0].Title)

	doneStatus := "done"
	done, _, err := suite.tasks.ListGroupTasks(suite.ctx, owner.ID, group.ID, ListTasksInput{Status: &doneStatus})
	suite.Require().NoError(err)
	suite.Require().Len(done, 1)
	suite.True(done[0].Done)
}

func (suite *ServicesTestSuite) TestSuggestTasks() {
	owner := suite.createUser(1, "owner")
	group := suite.createGroup(owner)

	_, err := suite.tasks.SuggestTasks(suite.ctx, owner.ID, group.ID, "call mom")
	suite.ErrorIs(err, ErrAIServiceNotConfigured)

	suite.tasks.suggester = stubSuggester{tasks: []GeneratedTask{
		{Title: " Call mom ", Deadline: "2026-10-18"},
		{Title: ""},
		{Title: "Pay rent", Deadline: "next friday"},
	}}
	drafts, err := suite.tasks.SuggestTasks(suite.ctx, owner.ID, group.ID, "call mom tomorrow, pay rent")
	suite.Require().NoError(err)
	suite.Require().Len(drafts, 2)
	suite.Equal("Call mom", drafts[0].Title)
	suite.Equal("2026-10-18", drafts[0].Deadline)
	suite.Equal("", drafts[1].Deadline)

	suite.tasks.suggester = stubSuggester{err: errors.New("upstream down")}
	_, err = suite.tasks.SuggestTasks(suite.ctx, owner.ID, group.ID, "anything")
	suite.Error(err)
}

// Settings

func (suite *ServicesTestSuite) TestSettings_LazyDefaultsAndPatch() {
	user := suite.createUser(1, "u")

	settings, err := suite.settings.Get(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.True(settings.NotifyNewTask)
	suite.True(settings.NotifyTaskUpdates)

	off := false
	settings, err = suite.settings.Update(suite.ctx, user.ID, SettingsPatch{NotifyTaskUpdates: &off})
	suite.Require().NoError(err)
	suite.True(settings.NotifyNewTask)
	suite.False(settings.NotifyTaskUpdates)
}

func assigneeIDs(task *models.Task) []uint64 {
	ids := make([]uint64, len(task.Assignees))
	for i, a := range task.Assignees {
		ids[i] = a.UserID
	}
	return ids
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}

func TestParseGeneratedTasks_StripsCodeFence(t *testing.T) {
	tasks, err := parseGeneratedTasks("```json\n[{\"title\":\"Ship\",\"description\":\"\",\"deadline\":\"\"}]\n```")
	assert.NoError(t, err)
	assert.Equal(t, []GeneratedTask{{Title: "Ship"}}, tasks)
}
