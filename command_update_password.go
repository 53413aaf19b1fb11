package credentials

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdatePasswordMessage struct {
	UserID          uuid.UUID `json:"user_id"`
	Password        string    `json:"password"`
	ConfirmPassword string    `json:"confirm_password"`
}

func (m UpdatePasswordMessage) Type() string { return "account.password.update" }

// Validate will run validation rules
func (m UpdatePasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Password, validation.Required, validation.Length(6, 255)),
		validation.Field(&m.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(m.Password)),
		),
	)
}

// UpdatePasswordHandler replaces the password of an account.
type UpdatePasswordHandler struct {
	commandDeps
}

func NewUpdatePasswordHandler(repo RepositoryManager, opts ...CommandOption) *UpdatePasswordHandler {
	return &UpdatePasswordHandler{
		commandDeps: newCommandDeps(repo, "credentials.account", opts...),
	}
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "password update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password").
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		before := *current
		current.PasswordHash = hash

		if err := h.repo.Users().UpdatePasswordTx(ctx, tx, current.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		if _, err := h.repo.Tracker().TrackTx(ctx, tx, &before, current, &current.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record password revision")
		}

		user = current
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to update password")
	}

	h.notify(ctx, Message{
		To:       user.Email,
		Subject:  h.config.GetAppName() + " - New Password Information",
		Template: MailTemplateNewPassword,
		Data: map[string]any{
			"app": h.config.GetAppName(),
			"url": h.url(h.config.GetHomeURL()),
		},
	})

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	return nil
}
