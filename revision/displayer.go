package revision

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const (
	authorSelf       = "You "
	authorWithheld   = "This user "
	subjectWithheld  = " this user's "
	possessiveSuffix = "'s "
)

// Displayer renders one (type, field) change. Current is phrased for the
// subject of the change, External for anyone else.
type Displayer interface {
	Title() string
	Current(ctx context.Context, v *View) (string, error)
	External(ctx context.Context, v *View) (string, error)
}

// View binds a record to the viewer rendering it.
type View struct {
	Record Record
	Auth   AuthContext
	People PeopleLookup
}

// NewView creates a view, defaulting to an anonymous viewer.
func NewView(record Record, auth AuthContext, people PeopleLookup) *View {
	return &View{
		Record: record,
		Auth:   normalizeAuth(auth),
		People: people,
	}
}

// Describe picks the Current or External phrasing.
func Describe(ctx context.Context, d Displayer, v *View) (string, error) {
	if v.IsCurrentUser() {
		return d.Current(ctx, v)
	}
	return d.External(ctx, v)
}

func (v *View) actor() (uuid.UUID, bool) {
	auth := normalizeAuth(v.Auth)
	if !auth.IsAuthenticated() {
		return uuid.Nil, false
	}
	return auth.CurrentActorID()
}

// IsCurrentUser reports whether the authenticated actor is the subject of the change.
func (v *View) IsCurrentUser() bool {
	id, ok := v.actor()
	return ok && id == v.Record.RevisionableID
}

// WasByCurrentUser reports whether the authenticated actor made the change.
func (v *View) WasByCurrentUser() bool {
	id, ok := v.actor()
	return ok && v.Record.ActorIs(id)
}

// WasActualUser is true when the subject made the change or there is no
// recorded actor. System events therefore count as the user's own.
func (v *View) WasActualUser() bool {
	if !v.Record.HasActor() {
		return true
	}
	return *v.Record.UserID == v.Record.RevisionableID
}

// Author returns the sentence subject for the actor, with a trailing space.
func (v *View) Author(ctx context.Context) (string, error) {
	if v.WasByCurrentUser() || !v.Record.HasActor() {
		return authorSelf, nil
	}

	if v.Record.Security {
		return authorWithheld, nil
	}

	person, err := v.findPerson(ctx, *v.Record.UserID)
	if err != nil {
		return "", err
	}

	return person.DisplayName() + " ", nil
}

// SubjectPossessive returns " First Last's " for the subject of the change.
func (v *View) SubjectPossessive(ctx context.Context) (string, error) {
	if v.Record.Security {
		return subjectWithheld, nil
	}

	person, err := v.findPerson(ctx, v.Record.RevisionableID)
	if err != nil {
		return "", err
	}

	return " " + person.FirstName + " " + person.LastName + possessiveSuffix, nil
}

func (v *View) findPerson(ctx context.Context, id uuid.UUID) (Person, error) {
	if v.People == nil {
		return Person{}, ErrMissingPeopleLookup
	}
	return v.People.FindPerson(ctx, id)
}

// Static is a Displayer made of fixed strings.
type Static struct {
	Heading      string
	CurrentText  string
	ExternalText string
}

// Title implements Displayer.
func (s Static) Title() string { return s.Heading }

// Current implements Displayer.
func (s Static) Current(context.Context, *View) (string, error) { return s.CurrentText, nil }

// External implements Displayer.
func (s Static) External(context.Context, *View) (string, error) { return s.ExternalText, nil }

// Template is a Displayer whose phrasings interpolate the author and the
// subject. Placeholders: {author} and {subject}; {old} and {new} expand to
// the record values.
type Template struct {
	Heading         string
	CurrentPattern  string
	ExternalPattern string
}

// Title implements Displayer.
func (t Template) Title() string { return t.Heading }

// Current implements Displayer.
func (t Template) Current(ctx context.Context, v *View) (string, error) {
	return expand(ctx, t.CurrentPattern, v)
}

// External implements Displayer.
func (t Template) External(ctx context.Context, v *View) (string, error) {
	return expand(ctx, t.ExternalPattern, v)
}

func expand(ctx context.Context, pattern string, v *View) (string, error) {
	out := pattern
	if strings.Contains(out, "{author}") {
		author, err := v.Author(ctx)
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, "{author}", author)
	}

	if strings.Contains(out, "{subject}") {
		subject, err := v.SubjectPossessive(ctx)
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, "{subject}", subject)
	}

	return strings.NewReplacer(
		"{old}", v.Record.OldValue,
		"{new}", v.Record.NewValue,
	).Replace(out), nil
}
