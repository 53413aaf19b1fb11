package credentials

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateAccountActivatesAndJoinsDefaultGroup(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")
	sink := &captureSink{}

	var resp *ActivateAccountResponse
	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, sink, &captureLogger{})...)
	err := handler.Execute(context.Background(), ActivateAccountMessage{
		UserID: user.ID.String(),
		Code:   user.ActivationCode,
		OnResponse: func(r *ActivateAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.User.IsActivated())
	assert.Equal(t, UserStatusActive, resp.User.Status)
	assert.Empty(t, resp.User.ActivationCode)
	assert.True(t, resp.AddedGroup)
	assert.Equal(t, "Users", resp.Group)

	names, err := repo.Groups().NamesForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Users"}, names)

	revs := listRevisions(t, repo, user.ID)
	require.Contains(t, revs, RevisionKeyGroup)
	assert.Equal(t, "Users", revs[RevisionKeyGroup].NewValue)
	assert.Nil(t, revs[RevisionKeyGroup].UserID)

	require.Contains(t, revs, RevisionKeyStatus)
	assert.True(t, revs[RevisionKeyStatus].Security)
	assert.Nil(t, revs[RevisionKeyStatus].UserID)
	assert.Equal(t, string(UserStatusPending), revs[RevisionKeyStatus].OldValue)

	require.Contains(t, revs, RevisionKeyActivatedAt)
	require.NotNil(t, revs[RevisionKeyActivatedAt].UserID)
	assert.Equal(t, user.ID, *revs[RevisionKeyActivatedAt].UserID)

	require.Len(t, sink.events, 1)
	assert.Equal(t, ActivityEventAccountActivated, sink.events[0].EventType)
	assert.Equal(t, UserStatusPending, sink.events[0].FromStatus)
	assert.Equal(t, UserStatusActive, sink.events[0].ToStatus)
}

func TestActivateAccountRejectsWrongCode(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")
	sink := &captureSink{}

	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, sink, &captureLogger{})...)
	err := handler.Execute(context.Background(), ActivateAccountMessage{
		UserID: user.ID.String(),
		Code:   "not-the-code",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActivationFailed)

	stored, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.IsActivated())
	assert.Empty(t, sink.events)
	assert.Empty(t, listRevisions(t, repo, user.ID))
}

func TestActivateAccountAlreadyActivated(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerActiveUser(t, repo, "john@example.com")

	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, nil, &captureLogger{})...)
	err := handler.Execute(context.Background(), ActivateAccountMessage{
		UserID: user.ID.String(),
		Code:   "whatever",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyActivated)
}

func TestActivateAccountUnknownUser(t *testing.T) {
	repo, _ := newTestManager(t)
	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, nil, &captureLogger{})...)

	err := handler.Execute(context.Background(), ActivateAccountMessage{UserID: uuid.NewString(), Code: "abc"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = handler.Execute(context.Background(), ActivateAccountMessage{UserID: "not-a-uuid", Code: "abc"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestActivateAccountRequiresIDAndCode(t *testing.T) {
	repo, _ := newTestManager(t)
	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, nil, &captureLogger{})...)

	err := handler.Execute(context.Background(), ActivateAccountMessage{UserID: uuid.NewString()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestActivateAccountCancelledContext(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")
	handler := NewActivateAccountHandler(repo, commandTestOptions(&captureMailer{}, nil, &captureLogger{})...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, ActivateAccountMessage{UserID: user.ID.String(), Code: user.ActivationCode})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
