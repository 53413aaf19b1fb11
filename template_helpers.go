package credentials

import (
	"context"
	"time"

	"github.com/goliatone/go-credentials/revision"
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns helper functions for account templates.
//
// Usage:
//
//	renderer, err := template.NewRenderer(
//	    template.WithBaseDir("./templates"),
//	    template.WithGlobalData(credentials.TemplateHelpers()),
//	)
//
// In templates, you can then use:
//
//	{% if current_user|is_activated %}
//	{% for line in revision.diff %}{{ line.op }} {{ line.text }}{% endfor %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"is_activated":     isActivated,
		"is_suspended":     isSuspended,
		"full_name":        fullName,
		"statuses": map[string]string{
			"pending":   string(UserStatusPending),
			"active":    string(UserStatusActive),
			"suspended": string(UserStatusSuspended),
			"disabled":  string(UserStatusDisabled),
			"archived":  string(UserStatusArchived),
		},
	}
}

// TemplateHelpersWithUser returns template helpers with user set as current_user.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// GetTemplateUser extracts the current user stored in the router locals.
func GetTemplateUser(ctx router.Context, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := ctx.Locals(userKey)
	return user, user != nil
}

// RevisionTemplateData renders a single presenter into template values.
func RevisionTemplateData(ctx context.Context, p *revision.Presenter) (router.ViewContext, error) {
	title, err := p.Title()
	if err != nil {
		return nil, err
	}

	description, err := p.Description(ctx)
	if err != nil {
		return nil, err
	}

	diff := p.Diff()
	lines := make([]map[string]string, 0, len(diff))
	for _, line := range diff {
		lines = append(lines, map[string]string{
			"op":   string(line.Op),
			"text": line.Text,
		})
	}

	return router.ViewContext{
		"title":           title,
		"description":     description,
		"field":           p.Field(),
		"diff":            lines,
		"changed":         diff.Changed(),
		"by_current_user": p.WasByCurrentUser(),
		"created_at":      p.CreatedAt().UTC().Format(time.RFC3339),
	}, nil
}

// HistoryTemplateData renders presenters in order, failing on the first
// revision that can not be described.
func HistoryTemplateData(ctx context.Context, presenters []*revision.Presenter) ([]router.ViewContext, error) {
	out := make([]router.ViewContext, 0, len(presenters))
	for _, p := range presenters {
		data, err := RevisionTemplateData(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func isAuthenticated(user any) bool {
	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case AuthClaims:
		return u != nil && u.UserID() != ""
	case map[string]any:
		return len(u) > 0
	default:
		return false
	}
}

func isActivated(user any) bool {
	switch u := user.(type) {
	case *User:
		return u.IsActivated()
	case User:
		return u.IsActivated()
	default:
		return false
	}
}

func isSuspended(user any) bool {
	switch u := user.(type) {
	case *User:
		return u.IsSuspended()
	case User:
		return u.IsSuspended()
	default:
		return false
	}
}

func fullName(user any) string {
	switch u := user.(type) {
	case *User:
		return u.FullName()
	case User:
		return u.FullName()
	default:
		return ""
	}
}
