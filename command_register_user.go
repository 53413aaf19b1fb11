package credentials

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "account.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(2, 32)),
		validation.Field(&e.LastName, validation.Required, validation.Length(2, 32)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

type RegisterUserResponse struct {
	User *User
	Mail Message
}

// RegisterUserHandler creates a pending account and mails its activation link.
type RegisterUserHandler struct {
	commandDeps
}

func NewRegisterUserHandler(repo RepositoryManager, opts ...CommandOption) *RegisterUserHandler {
	return &RegisterUserHandler{
		commandDeps: newCommandDeps(repo, "credentials.activation", opts...),
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	event.Email = strings.TrimSpace(event.Email)
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration").
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	resp := &RegisterUserResponse{}
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Users().FindByLoginTx(ctx, tx, event.Email)
		switch {
		case err == nil:
			return ErrEmailTaken
		case !repository.IsRecordNotFound(err):
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
		}

		user, err := h.repo.Users().RegisterTx(ctx, tx, &User{
			FirstName:      event.FirstName,
			LastName:       event.LastName,
			Email:          event.Email,
			PasswordHash:   hash,
			Status:         UserStatusPending,
			ActivationCode: NewActivationCode(),
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		created := h.repo.Tracker().Event(user.ID, RevisionKeyCreatedAt, "", h.now().UTC().Format(time.RFC3339), nil)
		if err := h.repo.Tracker().RecordTx(ctx, tx, created); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record registration revision")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		return surfaceError(err, "user registration transaction failed")
	}

	resp.Mail = h.activationMail(resp.User)
	h.notify(ctx, resp.Mail)

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     userActor(resp.User),
		UserID:    resp.User.ID.String(),
		ToStatus:  resp.User.Status,
		Metadata:  map[string]any{"email": resp.User.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
