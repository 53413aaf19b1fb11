package revision

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one logged field change on one entity.
type Record struct {
	ID               uuid.UUID
	RevisionableType string
	RevisionableID   uuid.UUID
	// UserID is nil for system initiated or security events.
	UserID    *uuid.UUID
	Key       string
	OldValue  string
	NewValue  string
	Security  bool
	CreatedAt time.Time
}

// HasActor reports whether the record names the user who made the change.
func (r Record) HasActor() bool {
	return r.UserID != nil && *r.UserID != uuid.Nil
}

// ActorIs reports whether the record was made by the given user id.
func (r Record) ActorIs(id uuid.UUID) bool {
	return r.HasActor() && *r.UserID == id
}

// AuthContext exposes the currently authenticated actor.
type AuthContext interface {
	IsAuthenticated() bool
	CurrentActorID() (uuid.UUID, bool)
}

// Person holds the display fields of a user.
type Person struct {
	FirstName string
	LastName  string
}

// DisplayName joins first and last name.
func (p Person) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PeopleLookup finds display names, including soft deleted users.
type PeopleLookup interface {
	FindPerson(ctx context.Context, id uuid.UUID) (Person, error)
}

// PeopleLookupFunc adapts a function to PeopleLookup.
type PeopleLookupFunc func(ctx context.Context, id uuid.UUID) (Person, error)

// FindPerson implements PeopleLookup.
func (f PeopleLookupFunc) FindPerson(ctx context.Context, id uuid.UUID) (Person, error) {
	return f(ctx, id)
}

type anonymous struct{}

func (anonymous) IsAuthenticated() bool             { return false }
func (anonymous) CurrentActorID() (uuid.UUID, bool) { return uuid.Nil, false }

// Anonymous is an AuthContext without an authenticated actor.
var Anonymous AuthContext = anonymous{}

// ActorContext is an AuthContext for a known actor id.
type ActorContext uuid.UUID

// IsAuthenticated implements AuthContext.
func (a ActorContext) IsAuthenticated() bool {
	return uuid.UUID(a) != uuid.Nil
}

// CurrentActorID implements AuthContext.
func (a ActorContext) CurrentActorID() (uuid.UUID, bool) {
	if !a.IsAuthenticated() {
		return uuid.Nil, false
	}
	return uuid.UUID(a), true
}

func normalizeAuth(auth AuthContext) AuthContext {
	if auth == nil {
		return Anonymous
	}
	return auth
}
