package displayers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-credentials/revision"
)

// Revisionable type tags.
const (
	TypeModel = "model"
	TypeUser  = "user"
	TypeGroup = "group"
)

// NewRegistry returns a registry with the default types and displayers.
func NewRegistry() *revision.Registry {
	return Register(revision.NewRegistry())
}

// Register defines the default type chain and binds the default displayers.
func Register(reg *revision.Registry) *revision.Registry {
	reg.DefineType(TypeModel, "").
		DefineType(TypeUser, TypeModel).
		DefineType(TypeGroup, TypeModel)

	for field, factory := range modelDisplayers {
		reg.Register(TypeModel, field, factory)
	}

	for field, factory := range userDisplayers {
		reg.Register(TypeUser, field, factory)
	}

	for field, factory := range groupDisplayers {
		reg.Register(TypeGroup, field, factory)
	}

	return reg
}

func static(title, current, external string) revision.DisplayerFactory {
	d := revision.Static{Heading: title, CurrentText: current, ExternalText: external}
	return func() revision.Displayer { return d }
}

func template(title, current, external string) revision.DisplayerFactory {
	d := revision.Template{Heading: title, CurrentPattern: current, ExternalPattern: external}
	return func() revision.Displayer { return d }
}

var modelDisplayers = map[string]revision.DisplayerFactory{
	"created_at": static(
		"Creation Event",
		"Your record was created.",
		"This record was created.",
	),
	"deleted_at": static(
		"Deletion Event",
		"Your record was deleted.",
		"This record was deleted.",
	),
}

var userDisplayers = map[string]revision.DisplayerFactory{
	"suspended_at": static(
		"Suspension Event",
		"Your account was suspended for 15 minutes to protect it.",
		"This user's account was suspended for 15 minutes to protect it.",
	),
	"activated_at": static(
		"Activation Event",
		"You activated your account.",
		"This user activated their account.",
	),
	"activated": static(
		"Activation Status",
		"The activation status of your account was changed.",
		"The activation status of this user's account was changed.",
	),
	"last_login": static(
		"Login Event",
		"You logged into your account.",
		"This user logged into their account.",
	),
	"deleted_at": template(
		"Account Deleted",
		"{author}deleted your account.",
		"{author}deleted{subject}account.",
	),
	"email": template(
		"Email Changed",
		`{author}changed your email address from "{old}" to "{new}".`,
		`{author}changed{subject}email address from "{old}" to "{new}".`,
	),
	"first_name": template(
		"First Name Changed",
		`{author}changed your first name from "{old}" to "{new}".`,
		`{author}changed{subject}first name from "{old}" to "{new}".`,
	),
	"last_name": template(
		"Last Name Changed",
		`{author}changed your last name from "{old}" to "{new}".`,
		`{author}changed{subject}last name from "{old}" to "{new}".`,
	),
	"password": template(
		"Password Changed",
		"{author}changed your password.",
		"{author}changed{subject}password.",
	),
	"status": template(
		"Status Changed",
		"Your account status changed from {old} to {new}.",
		"This user's account status changed from {old} to {new}.",
	),
	"group": func() revision.Displayer { return groupMembership{} },
}

var groupDisplayers = map[string]revision.DisplayerFactory{
	"name": template(
		"Group Renamed",
		`{author}renamed this group from "{old}" to "{new}".`,
		`{author}renamed this group from "{old}" to "{new}".`,
	),
}

// groupMembership renders changes to a user's group_id relation. A change
// with no new value is a removal.
type groupMembership struct{}

func (groupMembership) Title() string { return "Group Membership" }

func (g groupMembership) Current(ctx context.Context, v *revision.View) (string, error) {
	if !v.Record.HasActor() {
		return g.passive("You were", v.Record), nil
	}

	author, err := v.Author(ctx)
	if err != nil {
		return "", err
	}
	return author + g.phrase("you", v.Record), nil
}

func (g groupMembership) External(ctx context.Context, v *revision.View) (string, error) {
	who := "this user"
	if !v.Record.Security {
		possessive, err := v.SubjectPossessive(ctx)
		if err != nil {
			return "", err
		}
		who = strings.TrimSuffix(strings.TrimSpace(possessive), "'s")
	}

	if !v.Record.HasActor() {
		return g.passive(capitalize(who)+" was", v.Record), nil
	}

	author, err := v.Author(ctx)
	if err != nil {
		return "", err
	}

	return author + g.phrase(who, v.Record), nil
}

func (groupMembership) phrase(who string, r revision.Record) string {
	if r.NewValue == "" {
		return fmt.Sprintf("removed %s from the %q group.", who, r.OldValue)
	}
	return fmt.Sprintf("added %s to the %q group.", who, r.NewValue)
}

func (groupMembership) passive(subject string, r revision.Record) string {
	if r.NewValue == "" {
		return fmt.Sprintf("%s removed from the %q group.", subject, r.OldValue)
	}
	return fmt.Sprintf("%s added to the %q group.", subject, r.NewValue)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
