package credentials

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrEmailTaken is returned when another account already uses the email.
var ErrEmailTaken = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

type UpdateDetailsMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	OnResponse func(resp *UpdateDetailsResponse)
}

func (m UpdateDetailsMessage) Type() string { return "account.details.update" }

// Validate will run validation rules
func (m UpdateDetailsMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.FirstName, validation.Required, validation.Length(2, 32)),
		validation.Field(&m.LastName, validation.Required, validation.Length(2, 32)),
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

type UpdateDetailsResponse struct {
	User         *User
	Revisions    []*Revision
	EmailChanged bool
}

// UpdateDetailsHandler edits the name and email of an account.
type UpdateDetailsHandler struct {
	commandDeps
}

func NewUpdateDetailsHandler(repo RepositoryManager, opts ...CommandOption) *UpdateDetailsHandler {
	return &UpdateDetailsHandler{
		commandDeps: newCommandDeps(repo, "credentials.account", opts...),
	}
}

func (h *UpdateDetailsHandler) Execute(ctx context.Context, event UpdateDetailsMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "account details update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateDetailsHandler) execute(ctx context.Context, event UpdateDetailsMessage) error {
	event.FirstName = strings.TrimSpace(event.FirstName)
	event.LastName = strings.TrimSpace(event.LastName)
	event.Email = strings.TrimSpace(event.Email)

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account details").
			WithCode(goerrors.CodeBadRequest)
	}

	resp := &UpdateDetailsResponse{}
	var before User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}
		before = *user

		if !strings.EqualFold(user.Email, event.Email) {
			other, err := h.repo.Users().FindByLoginTx(ctx, tx, event.Email)
			switch {
			case err == nil && other.ID != user.ID:
				return ErrEmailTaken
			case err != nil && !repository.IsRecordNotFound(err):
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
			}
		}

		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Email = event.Email

		revs := h.repo.Tracker().Changes(&before, user, &user.ID)
		if len(revs) == 0 {
			resp.User = user
			return nil
		}

		if err := h.repo.Users().UpdateDetailsTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account details")
		}

		if err := h.repo.Tracker().RecordTx(ctx, tx, revs...); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record detail revisions")
		}

		resp.User, resp.Revisions = user, revs
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to update account details")
	}

	resp.EmailChanged = before.Email != resp.User.Email
	if resp.EmailChanged {
		h.notify(ctx, Message{
			To:       before.Email,
			Subject:  h.config.GetAppName() + " - New Email Information",
			Template: MailTemplateNewEmail,
			Data: map[string]any{
				"app": h.config.GetAppName(),
				"url": h.url(h.config.GetHomeURL()),
				"old": before.Email,
				"new": resp.User.Email,
			},
		})
	}

	if len(resp.Revisions) > 0 {
		fields := make([]string, 0, len(resp.Revisions))
		for _, rev := range resp.Revisions {
			fields = append(fields, rev.Key)
		}
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventDetailsUpdated,
			Actor:     userActor(resp.User),
			UserID:    resp.User.ID.String(),
			Metadata:  map[string]any{"fields": fields},
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
