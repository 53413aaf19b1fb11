package credentials

import (
	"context"
	"crypto/subtle"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	UserID     string `json:"user_id"`
	Code       string `json:"code"`
	OnResponse func(resp *ActivateAccountResponse)
}

func (m ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	User       *User
	Group      string
	AddedGroup bool
}

// ActivateAccountHandler checks an activation code, activates the account
// and adds it to the default group.
type ActivateAccountHandler struct {
	commandDeps
}

func NewActivateAccountHandler(repo RepositoryManager, opts ...CommandOption) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		commandDeps: newCommandDeps(repo, "credentials.activation", opts...),
	}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "account activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	rawID, code := strings.TrimSpace(event.UserID), strings.TrimSpace(event.Code)
	if rawID == "" || code == "" {
		return goerrors.New("user id and activation code are required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return ErrUserNotFound
	}

	resp := &ActivateAccountResponse{Group: h.config.GetDefaultGroup()}
	var from UserStatus

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if user.IsActivated() {
			return ErrUserAlreadyActivated
		}
		user.EnsureStatus()
		from = user.Status

		if user.ActivationCode == "" || subtle.ConstantTimeCompare([]byte(user.ActivationCode), []byte(code)) != 1 {
			return ErrActivationFailed
		}

		activated, err := h.repo.Users().ActivateTx(ctx, tx, id, h.now())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user")
		}

		group, err := h.repo.Groups().FindByNameTx(ctx, tx, resp.Group)
		if err != nil {
			return err
		}

		added, err := h.repo.Groups().AddUserTx(ctx, tx, id, group.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add user to group")
		}

		tracker := h.repo.Tracker()
		revs := tracker.Changes(user, activated, &id)
		if added {
			revs = append(revs, tracker.Event(id, RevisionKeyGroup, "", group.Name, nil))
		}

		if err := tracker.RecordTx(ctx, tx, revs...); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record activation revisions")
		}

		resp.User, resp.AddedGroup = activated, added
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to activate account")
	}

	h.emit(ctx, ActivityEvent{
		EventType:  ActivityEventAccountActivated,
		Actor:      userActor(resp.User),
		UserID:     resp.User.ID.String(),
		FromStatus: from,
		ToStatus:   resp.User.Status,
		Metadata:   map[string]any{"group": resp.Group},
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
