package credentials

import (
	"strings"
	"time"

	"github.com/goliatone/go-credentials/revision"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Status         UserStatus `bun:"status,notnull" json:"status,omitempty"`
	ActivationCode string     `bun:"activation_code" json:"-"`
	ActivatedAt    *time.Time `bun:"activated_at,nullzero" json:"activated_at,omitempty"`
	SuspendedAt    *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	LastLoginAt    *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsActivated reports whether the account finished activation.
func (u *User) IsActivated() bool {
	return u != nil && u.ActivatedAt != nil
}

// FullName returns first and last name separated by a space.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Person exposes the display name fields revisions refer to.
func (u *User) Person() revision.Person {
	if u == nil {
		return revision.Person{}
	}
	return revision.Person{FirstName: u.FirstName, LastName: u.LastName}
}

// Group is a named set of users
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:grp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserGroup links users and groups
type UserGroup struct {
	bun.BaseModel `bun:"table:users_groups,alias:ugr"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id"`
	GroupID       uuid.UUID  `bun:"group_id,pk,type:uuid" json:"group_id"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Revision is a persisted field change
type Revision struct {
	bun.BaseModel    `bun:"table:revisions,alias:rev"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RevisionableType string     `bun:"revisionable_type,notnull" json:"revisionable_type"`
	RevisionableID   uuid.UUID  `bun:"revisionable_id,notnull,type:uuid" json:"revisionable_id"`
	UserID           *uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	Key              string     `bun:"key,notnull" json:"key"`
	OldValue         string     `bun:"old_value" json:"old_value,omitempty"`
	NewValue         string     `bun:"new_value" json:"new_value,omitempty"`
	Security         bool       `bun:"security,notnull" json:"security"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ToRecord converts the model into the presenter's input.
func (r *Revision) ToRecord() revision.Record {
	rec := revision.Record{
		ID:               r.ID,
		RevisionableType: r.RevisionableType,
		RevisionableID:   r.RevisionableID,
		UserID:           r.UserID,
		Key:              r.Key,
		OldValue:         r.OldValue,
		NewValue:         r.NewValue,
		Security:         r.Security,
	}
	if r.CreatedAt != nil {
		rec.CreatedAt = *r.CreatedAt
	}
	return rec
}

// RevisionRecords converts models in order.
func RevisionRecords(revisions []*Revision) []revision.Record {
	out := make([]revision.Record, 0, len(revisions))
	for _, r := range revisions {
		if r != nil {
			out = append(out, r.ToRecord())
		}
	}
	return out
}
