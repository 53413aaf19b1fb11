package credentials

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/revision"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]
	revision.PeopleLookup

	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	FindByLoginTx(ctx context.Context, tx bun.IDB, login string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateDetailsTx(ctx context.Context, tx bun.IDB, user *User) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SetActivationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) error
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*User, error)
	TrackLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, user *User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return record, nil
}

func (a *users) FindByLogin(ctx context.Context, login string) (*User, error) {
	return a.FindByLoginTx(ctx, a.db, login)
}

// FindByLoginTx finds a user by id or email address.
func (a *users) FindByLoginTx(ctx context.Context, tx bun.IDB, login string) (*User, error) {
	for _, opt := range resolveUserIdentifier(login) {
		record := &User{}
		err := tx.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"login": login,
		})
}

// FindPerson resolves display names, soft deleted accounts included.
func (a *users) FindPerson(ctx context.Context, id uuid.UUID) (revision.Person, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return revision.Person{}, ErrUserNotFound
		}
		return revision.Person{}, err
	}
	return record.Person(), nil
}

func (a *users) UpdateDetailsTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := time.Now()
	user.UpdatedAt = &now
	return expectOneRow(tx.NewUpdate().
		Model(user).
		Column("first_name", "last_name", "email", "updated_at").
		WherePK().
		Exec(ctx))
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	now := time.Now()
	record := &User{ID: id, PasswordHash: passwordHash, UpdatedAt: &now}
	return expectOneRow(tx.NewUpdate().
		Model(record).
		Column("password_hash", "updated_at").
		WherePK().
		Exec(ctx))
}

func (a *users) SetActivationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) error {
	record := &User{ID: id, ActivationCode: code}
	return expectOneRow(tx.NewUpdate().
		Model(record).
		Column("activation_code").
		WherePK().
		Exec(ctx))
}

// ActivateTx marks the account active and clears its activation code.
func (a *users) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*User, error) {
	record := &User{
		ID:          id,
		Status:      UserStatusActive,
		ActivatedAt: &at,
		UpdatedAt:   &at,
	}

	err := expectOneRow(tx.NewUpdate().
		Model(record).
		Column("status", "activated_at", "activation_code", "updated_at").
		WherePK().
		Exec(ctx))
	if err != nil {
		return nil, err
	}

	return a.FindByIDTx(ctx, tx, id)
}

func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	record := &User{ID: id, LastLoginAt: &at}
	return expectOneRow(tx.NewUpdate().
		Model(record).
		Column("last_login_at").
		WherePK().
		Exec(ctx))
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, user *User) error {
	return expectOneRow(tx.NewDelete().
		Model(user).
		WherePK().
		Exec(ctx))
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	current, err := a.FindByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	current.Status = status
	for _, opt := range opts {
		if opt != nil {
			opt(current)
		}
	}

	now := time.Now()
	current.UpdatedAt = &now

	err = expectOneRow(tx.NewUpdate().
		Model(current).
		Column("status", "suspended_at", "activated_at", "updated_at").
		WherePK().
		Exec(ctx))
	if err != nil {
		return nil, err
	}

	return current, nil
}

func (a *users) Suspend(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusSuspended, opts...)
}

func (a *users) Reinstate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

// StatusUpdateOption allows callers to mutate the user record before persisting status changes.
type StatusUpdateOption func(*User)

// WithSuspendedAt sets the SuspendedAt timestamp during a status transition.
func WithSuspendedAt(at *time.Time) StatusUpdateOption {
	return func(u *User) {
		u.SuspendedAt = at
	}
}

// WithActivatedAt sets the ActivatedAt timestamp during a status transition.
func WithActivatedAt(at *time.Time) StatusUpdateOption {
	return func(u *User) {
		u.ActivatedAt = at
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = strings.TrimSpace(record.Email)
	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if id, err := uuid.Parse(trimmed); err == nil {
		options = append(options, identifierOption{
			column: "id",
			value:  id.String(),
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
