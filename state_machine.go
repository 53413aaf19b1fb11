package credentials

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_USER_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when leaving the archived status.
var ErrTerminalState = goerrors.New("user state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who or what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// UUID returns the actor id when it names a user.
func (a ActorRef) UUID() (uuid.UUID, bool) {
	id, err := uuid.Parse(a.ID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// TransitionContext is passed into hooks.
type TransitionContext struct {
	Actor  ActorRef
	User   *User
	From   UserStatus
	To     UserStatus
	Reason string
}

// TransitionHook runs after a transition was persisted.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// StatusStore persists status changes.
type StatusStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
}

// UserStateMachine defines lifecycle operations for users.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock.
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineRevisions records status, suspension and activation
// revisions for every transition.
func WithStateMachineRevisions(writer RevisionWriter) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.revisions = writer
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.loggerProvider, sm.logger = fixedLoggerProvider{logger: logger}, logger
		}
	}
}

// WithStateMachineLoggerProvider resolves the logger from provider.
func WithStateMachineLoggerProvider(provider LoggerProvider) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.loggerProvider, sm.logger = ResolveLogger("credentials.state_machine", provider, sm.logger)
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithForceTransition bypasses validation rules.
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// WithSuspensionTime overrides the timestamp recorded when entering the suspended state.
func WithSuspensionTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.suspensionTime = &t
	}
}

// NewUserStateMachine returns the default implementation backed by store.
func NewUserStateMachine(store StatusStore, opts ...StateMachineOption) UserStateMachine {
	provider, logger := ResolveLogger("credentials.state_machine", nil, nil)
	sm := &userStateMachine{
		store: store,
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusPending: {
				UserStatusActive:   {},
				UserStatusDisabled: {},
			},
			UserStatusActive: {
				UserStatusSuspended: {},
				UserStatusDisabled:  {},
				UserStatusArchived:  {},
			},
			UserStatusSuspended: {
				UserStatusActive:   {},
				UserStatusDisabled: {},
			},
			UserStatusDisabled: {
				UserStatusArchived: {},
			},
		},
		now:            time.Now,
		activitySink:   noopActivitySink{},
		logger:         logger,
		loggerProvider: provider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	store          StatusStore
	transitions    map[UserStatus]map[UserStatus]struct{}
	now            func() time.Time
	activitySink   ActivitySink
	revisions      RevisionWriter
	logger         Logger
	loggerProvider LoggerProvider
}

type transitionOptions struct {
	reason         string
	force          bool
	afterHooks     []TransitionHook
	suspensionTime *time.Time
}

func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition
	}

	user.EnsureStatus()
	from := user.Status
	if target == "" {
		return nil, ErrInvalidTransition
	}

	if from == target {
		return user, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if from == UserStatusArchived && !options.force {
		return nil, ErrTerminalState
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition
	}

	before := *user
	updated, err := sm.store.UpdateStatus(ctx, user.ID, target, sm.statusOptions(user, from, target, options)...)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(user, updated, target)

	tc := TransitionContext{
		Actor:  actor,
		User:   user,
		From:   from,
		To:     target,
		Reason: options.reason,
	}

	for _, hook := range options.afterHooks {
		if err := hook(ctx, tc); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation,
				fmt.Sprintf("after transition hook failed: %s to %s", from, target))
		}
	}

	sm.recordRevisions(ctx, &before, user)

	var metadata map[string]any
	if options.reason != "" {
		metadata = map[string]any{"reason": options.reason}
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		Actor:      actor,
		UserID:     user.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   metadata,
	})

	return user, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}

func (sm *userStateMachine) canTransition(from, to UserStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *userStateMachine) statusOptions(user *User, from, to UserStatus, opts *transitionOptions) []StatusUpdateOption {
	statusOpts := []StatusUpdateOption{}

	switch {
	case to == UserStatusSuspended:
		at := opts.suspensionTime
		if at == nil {
			now := sm.now()
			at = &now
		}
		statusOpts = append(statusOpts, WithSuspendedAt(at))
	case from == UserStatusSuspended:
		statusOpts = append(statusOpts, WithSuspendedAt(nil))
	}

	if to == UserStatusActive && user.ActivatedAt == nil {
		now := sm.now()
		statusOpts = append(statusOpts, WithActivatedAt(&now))
	}

	return statusOpts
}

func (sm *userStateMachine) applyUpdates(user, updated *User, target UserStatus) {
	if updated == nil {
		user.Status = target
		return
	}

	user.Status = updated.Status
	if user.Status == "" {
		user.Status = target
	}
	user.SuspendedAt = updated.SuspendedAt
	user.ActivatedAt = updated.ActivatedAt
}

// recordRevisions logs the transition as security events. Lifting a
// suspension only records the status change.
func (sm *userStateMachine) recordRevisions(ctx context.Context, before, after *User) {
	if sm.revisions == nil {
		return
	}

	oldStatus, newStatus := string(before.Status), string(after.Status)
	revs := []*Revision{
		sm.securityRevision(after.ID, RevisionKeyStatus, oldStatus, newStatus),
	}

	if after.SuspendedAt != nil && before.SuspendedAt == nil {
		revs = append(revs, sm.securityRevision(after.ID, RevisionKeySuspendedAt, "", formatTime(after.SuspendedAt)))
	}

	if after.ActivatedAt != nil && before.ActivatedAt == nil {
		revs = append(revs, sm.securityRevision(after.ID, RevisionKeyActivatedAt, "", formatTime(after.ActivatedAt)))
	}

	if err := sm.revisions.Write(ctx, revs...); err != nil {
		sm.logger.Warn("state machine revision write error", "error", err)
	}
}

func (sm *userStateMachine) securityRevision(userID uuid.UUID, key, oldValue, newValue string) *Revision {
	now := sm.now()
	return &Revision{
		ID:               uuid.New(),
		RevisionableType: revisionTypeUser,
		RevisionableID:   userID,
		Key:              key,
		OldValue:         oldValue,
		NewValue:         newValue,
		Security:         true,
		CreatedAt:        &now,
	}
}

func (sm *userStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}
