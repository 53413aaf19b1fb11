package credentials

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Groups() Groups
	Revisions() Revisions
	Tracker() *RevisionTracker
}

type mngr struct {
	db        *bun.DB
	users     Users
	groups    Groups
	revisions Revisions
	tracker   *RevisionTracker
}

// NewRepositoryManager wires the repositories over db. Status transitions
// made through Users record security revisions.
func NewRepositoryManager(db *bun.DB, opts ...StateMachineOption) RepositoryManager {
	revs := NewRevisionsRepository(db)
	tracker := NewRevisionTracker(revs, db)

	smOpts := append([]StateMachineOption{WithStateMachineRevisions(tracker)}, opts...)

	return &mngr{
		db:        db,
		users:     NewUsersRepository(db, WithUsersStateMachineOptions(smOpts...)),
		groups:    NewGroupsRepository(db),
		revisions: revs,
		tracker:   tracker,
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.groups == nil {
		return errors.New("repository groups should be initialized")
	}

	if m.revisions == nil {
		return errors.New("repository revisions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Groups() Groups {
	return m.groups
}

func (m mngr) Revisions() Revisions {
	return m.revisions
}

func (m mngr) Tracker() *RevisionTracker {
	return m.tracker
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
