package credentials

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStateMachine struct {
	lastTarget UserStatus
	err        error
}

func (s *stubStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	s.lastTarget = target
	return user, s.err
}

func (s *stubStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	return user.Status
}

func TestUsersLifecycleHelpers(t *testing.T) {
	t.Parallel()

	stub := &stubStateMachine{}
	repo := &users{
		stateMachine: stub,
	}

	actor := ActorRef{ID: "admin"}
	u := &User{Status: UserStatusActive}

	_, err := repo.Suspend(context.Background(), actor, u)
	assert.NoError(t, err)
	assert.Equal(t, UserStatusSuspended, stub.lastTarget)

	_, err = repo.Reinstate(context.Background(), actor, u)
	assert.NoError(t, err)
	assert.Equal(t, UserStatusActive, stub.lastTarget)
}

func TestUsersRegisterDefaults(t *testing.T) {
	repo, _ := newTestManager(t)

	user, err := repo.Users().Register(context.Background(), &User{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "  jane@example.com ",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, UserStatusPending, user.Status)
}

func TestUsersFindByLogin(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")

	byEmail, err := repo.Users().FindByLogin(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.Users().FindByLogin(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	_, err = repo.Users().FindByLogin(context.Background(), "missing@example.com")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Users().FindByLogin(context.Background(), "   ")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersSuspendRecordsSecurityRevisions(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerActiveUser(t, repo, "john@example.com")

	admin := uuid.New()
	suspended, err := repo.Users().Suspend(context.Background(), ActorRef{ID: admin.String(), Type: "admin"}, user,
		WithTransitionReason("abuse"),
	)
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended())
	require.NotNil(t, suspended.SuspendedAt)

	stored, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, UserStatusSuspended, stored.Status)
	assert.NotNil(t, stored.SuspendedAt)

	revs := listRevisions(t, repo, user.ID)
	require.Contains(t, revs, RevisionKeyStatus)
	require.Contains(t, revs, RevisionKeySuspendedAt)
	for _, key := range []string{RevisionKeyStatus, RevisionKeySuspendedAt} {
		assert.True(t, revs[key].Security)
		assert.Nil(t, revs[key].UserID)
	}

	reinstated, err := repo.Users().Reinstate(context.Background(), ActorRef{ID: admin.String(), Type: "admin"}, suspended)
	require.NoError(t, err)
	assert.Equal(t, UserStatusActive, reinstated.Status)
	assert.Nil(t, reinstated.SuspendedAt)
}

func TestUsersFindPersonIncludesDeleted(t *testing.T) {
	repo, db := newTestManager(t)
	user := registerActiveUser(t, repo, "john@example.com")

	require.NoError(t, repo.Users().SoftDeleteTx(context.Background(), db, user))

	person, err := repo.Users().FindPerson(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", person.FirstName+" "+person.LastName)

	_, err = repo.Users().FindPerson(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGroupsAddUserIsIdempotent(t *testing.T) {
	repo, db := newTestManager(t)
	user := registerActiveUser(t, repo, "john@example.com")

	group, err := repo.Groups().FindByName(context.Background(), "Users")
	require.NoError(t, err)
	assert.Equal(t, testDefaultGroupID, group.ID.String())

	added, err := repo.Groups().AddUserTx(context.Background(), db, user.ID, group.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Groups().AddUserTx(context.Background(), db, user.ID, group.ID)
	require.NoError(t, err)
	assert.False(t, added)

	names, err := repo.Groups().NamesForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Users"}, names)

	_, err = repo.Groups().FindByName(context.Background(), "Admins")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRevisionsListForRevisionable(t *testing.T) {
	repo, db := newTestManager(t)
	user := registerActiveUser(t, repo, "john@example.com")
	other := registerPendingUser(t, repo, "jane@example.com")

	tracker := repo.Tracker()
	require.NoError(t, tracker.RecordTx(context.Background(), db,
		tracker.Event(user.ID, RevisionKeyFirstName, "John", "Johnny", &user.ID),
		tracker.Event(user.ID, RevisionKeyLastName, "Smith", "Smyth", &user.ID),
		tracker.Event(other.ID, RevisionKeyFirstName, "Jane", "Janet", &other.ID),
	))

	records, err := repo.Revisions().ListForRevisionable(context.Background(), revisionTypeUser, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	limited, err := repo.Revisions().ListForRevisionable(context.Background(), revisionTypeUser, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := repo.Revisions().ListForRevisionable(context.Background(), "post", user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepositoryManagerValidate(t *testing.T) {
	repo, _ := newTestManager(t)
	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, repo.MustValidate)

	empty := mngr{}
	assert.Error(t, empty.Validate())
}
