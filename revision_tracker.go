package credentials

import (
	"context"
	"time"

	"github.com/goliatone/go-credentials/revision/displayers"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const revisionTypeUser = displayers.TypeUser

// PasswordMarker stands in for password values in revisions.
const PasswordMarker = "********"

const (
	RevisionKeyFirstName   = "first_name"
	RevisionKeyLastName    = "last_name"
	RevisionKeyEmail       = "email"
	RevisionKeyPassword    = "password"
	RevisionKeyStatus      = "status"
	RevisionKeySuspendedAt = "suspended_at"
	RevisionKeyActivatedAt = "activated_at"
	RevisionKeyLastLogin   = "last_login"
	RevisionKeyCreatedAt   = "created_at"
	RevisionKeyDeletedAt   = "deleted_at"
	RevisionKeyGroup       = "group_id"
)

type trackedField struct {
	key      string
	security bool
	value    func(*User) string
}

var trackedUserFields = []trackedField{
	{key: RevisionKeyFirstName, value: func(u *User) string { return u.FirstName }},
	{key: RevisionKeyLastName, value: func(u *User) string { return u.LastName }},
	{key: RevisionKeyEmail, value: func(u *User) string { return u.Email }},
	{key: RevisionKeyPassword, value: func(u *User) string { return u.PasswordHash }},
	{key: RevisionKeyStatus, security: true, value: func(u *User) string { return string(u.Status) }},
	{key: RevisionKeySuspendedAt, security: true, value: func(u *User) string { return formatTime(u.SuspendedAt) }},
	{key: RevisionKeyActivatedAt, value: func(u *User) string { return formatTime(u.ActivatedAt) }},
	{key: RevisionKeyDeletedAt, value: func(u *User) string { return formatTime(u.DeletedAt) }},
}

// RevisionWriter persists revisions outside of a caller transaction.
type RevisionWriter interface {
	Write(ctx context.Context, revisions ...*Revision) error
}

// RevisionTracker turns user changes into revisions.
type RevisionTracker struct {
	revisions Revisions
	db        bun.IDB
	now       func() time.Time
}

// NewRevisionTracker builds a tracker writing through revisions.
func NewRevisionTracker(revisions Revisions, db bun.IDB) *RevisionTracker {
	return &RevisionTracker{
		revisions: revisions,
		db:        db,
		now:       time.Now,
	}
}

// WithClock overrides the timestamp source.
func (t *RevisionTracker) WithClock(now func() time.Time) *RevisionTracker {
	if now != nil {
		t.now = now
	}
	return t
}

// Changes compares two snapshots of the same user. Fields that did not
// change produce nothing and password values are never copied.
func (t *RevisionTracker) Changes(before, after *User, actor *uuid.UUID) []*Revision {
	if before == nil || after == nil {
		return nil
	}

	var out []*Revision
	for _, field := range trackedUserFields {
		oldValue, newValue := field.value(before), field.value(after)
		if oldValue == newValue {
			continue
		}

		if field.key == RevisionKeyPassword {
			oldValue, newValue = PasswordMarker, PasswordMarker
		}

		rev := t.Event(after.ID, field.key, oldValue, newValue, actor)
		if field.security {
			rev.Security = true
			rev.UserID = nil
		}
		out = append(out, rev)
	}

	return out
}

// Event builds a single user revision.
func (t *RevisionTracker) Event(userID uuid.UUID, key, oldValue, newValue string, actor *uuid.UUID) *Revision {
	now := t.now()
	return &Revision{
		ID:               uuid.New(),
		RevisionableType: revisionTypeUser,
		RevisionableID:   userID,
		UserID:           copyID(actor),
		Key:              key,
		OldValue:         oldValue,
		NewValue:         newValue,
		CreatedAt:        &now,
	}
}

// SecurityEvent builds a revision that never names its actor.
func (t *RevisionTracker) SecurityEvent(userID uuid.UUID, key, oldValue, newValue string) *Revision {
	rev := t.Event(userID, key, oldValue, newValue, nil)
	rev.Security = true
	return rev
}

// TrackTx writes the revisions between before and after inside tx.
func (t *RevisionTracker) TrackTx(ctx context.Context, tx bun.IDB, before, after *User, actor *uuid.UUID) ([]*Revision, error) {
	changes := t.Changes(before, after, actor)
	if err := t.revisions.CreateManyTx(ctx, tx, changes...); err != nil {
		return nil, err
	}
	return changes, nil
}

// RecordTx writes prepared revisions inside tx.
func (t *RevisionTracker) RecordTx(ctx context.Context, tx bun.IDB, revisions ...*Revision) error {
	return t.revisions.CreateManyTx(ctx, tx, revisions...)
}

// Write implements RevisionWriter.
func (t *RevisionTracker) Write(ctx context.Context, revisions ...*Revision) error {
	return t.revisions.CreateManyTx(ctx, t.db, revisions...)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	cp := *id
	return &cp
}
