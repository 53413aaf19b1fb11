package credentials

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// CommandOption configures account command handlers.
type CommandOption func(*commandDeps)

type commandDeps struct {
	repo     RepositoryManager
	config   Config
	mailer   Mailer
	hasher   PasswordHasher
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// WithCommandConfig sets the settings used for urls, groups and mail.
func WithCommandConfig(cfg Config) CommandOption {
	return func(d *commandDeps) {
		if cfg != nil {
			d.config = cfg
		}
	}
}

// WithCommandMailer sets the mailer notices are sent through.
func WithCommandMailer(m Mailer) CommandOption {
	return func(d *commandDeps) {
		if m != nil {
			d.mailer = m
		}
	}
}

// WithCommandHasher overrides the password hasher.
func WithCommandHasher(h PasswordHasher) CommandOption {
	return func(d *commandDeps) {
		if h != nil {
			d.hasher = h
		}
	}
}

// WithCommandActivitySink publishes account events to sink.
func WithCommandActivitySink(sink ActivitySink) CommandOption {
	return func(d *commandDeps) {
		d.activity = normalizeActivitySink(sink)
	}
}

// WithCommandLogger overrides the handler logger.
func WithCommandLogger(logger Logger) CommandOption {
	return func(d *commandDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCommandClock injects a custom clock.
func WithCommandClock(now func() time.Time) CommandOption {
	return func(d *commandDeps) {
		if now != nil {
			d.now = now
		}
	}
}

func newCommandDeps(repo RepositoryManager, name string, opts ...CommandOption) commandDeps {
	_, logger := ResolveLogger(name, nil, nil)
	d := commandDeps{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}

	if d.config == nil {
		d.config = DefaultSettings()
	}

	if d.hasher == nil {
		d.hasher = NewBcryptHasher(d.config.GetBcryptCost())
	}

	if d.mailer == nil {
		mailer, err := NewTemplateMailer(d.config.GetMailFrom(), WithMailLogger(d.logger))
		if err != nil {
			panic(err)
		}
		d.mailer = mailer
	}

	return d
}

func (d commandDeps) url(path string) string {
	return absoluteURL(d.config.GetBaseURL(), path)
}

// notify sends msg and logs failures; notices never fail the command.
func (d commandDeps) notify(ctx context.Context, msg Message) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error("send account notice", "template", msg.Template, "to", msg.To, "error", err)
	}
}

func (d commandDeps) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}
	emitActivity(ctx, d.activity, d.logger, event)
}

func cancelled(ctx context.Context, action string) error {
	return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+action)
}
