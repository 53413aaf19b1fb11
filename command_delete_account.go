package credentials

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	UserID uuid.UUID `json:"user_id"`
}

func (m DeleteAccountMessage) Type() string { return "account.delete" }

// DeleteAccountHandler soft deletes the signed in account.
type DeleteAccountHandler struct {
	commandDeps
}

func NewDeleteAccountHandler(repo RepositoryManager, opts ...CommandOption) *DeleteAccountHandler {
	return &DeleteAccountHandler{
		commandDeps: newCommandDeps(repo, "credentials.account", opts...),
	}
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "account deletion")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	if event.UserID == uuid.Nil {
		return ErrUnauthenticated
	}

	var user *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		before := *current
		now := h.now()
		current.DeletedAt = &now

		if _, err := h.repo.Tracker().TrackTx(ctx, tx, &before, current, &current.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record deletion revision")
		}

		if err := h.repo.Users().SoftDeleteTx(ctx, tx, current); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
		}

		user = current
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to delete account")
	}

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor:     userActor(user),
		UserID:    user.ID.String(),
	})

	return nil
}
