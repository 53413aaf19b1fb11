package credentials

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ResendActivationMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *ResendActivationResponse)
}

func (m ResendActivationMessage) Type() string { return "account.activation.resend" }

// Validate will run validation rules
func (m ResendActivationMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

type ResendActivationResponse struct {
	User *User
	Mail Message
}

// ActivationPath is the route an activation link points to.
func ActivationPath(user *User) string {
	return fmt.Sprintf("/account/activate/%s/%s", user.ID, user.ActivationCode)
}

// ResendActivationHandler queues a fresh activation email for a pending account.
type ResendActivationHandler struct {
	commandDeps
}

func NewResendActivationHandler(repo RepositoryManager, opts ...CommandOption) *ResendActivationHandler {
	return &ResendActivationHandler{
		commandDeps: newCommandDeps(repo, "credentials.activation", opts...),
	}
}

func (h *ResendActivationHandler) Execute(ctx context.Context, event ResendActivationMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "activation resend")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendActivationHandler) execute(ctx context.Context, event ResendActivationMessage) error {
	event.Email = strings.TrimSpace(event.Email)
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation resend request").
			WithCode(goerrors.CodeBadRequest)
	}

	resp := &ResendActivationResponse{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByLoginTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for activation resend")
		}

		if user.IsActivated() {
			return ErrUserAlreadyActivated
		}

		if user.ActivationCode == "" {
			user.ActivationCode = NewActivationCode()
			if err := h.repo.Users().SetActivationCodeTx(ctx, tx, user.ID, user.ActivationCode); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store activation code")
			}
		}

		resp.User = user
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to resend activation")
	}

	user := resp.User
	resp.Mail = h.activationMail(user)

	if err := h.mailer.Send(ctx, resp.Mail); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to queue activation email")
	}

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventActivationResent,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"email": user.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (d commandDeps) activationMail(user *User) Message {
	return Message{
		To:       user.Email,
		Subject:  d.config.GetAppName() + " - Activation",
		Template: MailTemplateActivation,
		Data: map[string]any{
			"app":   d.config.GetAppName(),
			"url":   d.url(d.config.GetHomeURL()),
			"link":  d.url(ActivationPath(user)),
			"email": user.Email,
			"name":  user.FullName(),
		},
	}
}
