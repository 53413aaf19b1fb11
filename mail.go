package credentials

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

const (
	MailTemplateActivation  = "activation"
	MailTemplateNewEmail    = "new_email"
	MailTemplateNewPassword = "new_password"
)

// ErrMailerClosed is returned by a QueuedMailer after Close.
var ErrMailerClosed = goerrors.New("mailer is closed", goerrors.CategoryOperation)

// Message is an outgoing email. When Template is set the body is rendered
// from Data.
type Message struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Body     string         `json:"body,omitempty"`
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Transport delivers fully rendered messages.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, msg Message) error

// Deliver implements Transport.
func (f TransportFunc) Deliver(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogTransport writes messages to the logger instead of sending them.
type LogTransport struct {
	logger Logger
}

// NewLogTransport returns a transport logging through logger.
func NewLogTransport(logger Logger) *LogTransport {
	if logger == nil {
		_, logger = ResolveLogger("credentials.mailer", nil, nil)
	}
	return &LogTransport{logger: logger}
}

// Deliver implements Transport.
func (t *LogTransport) Deliver(_ context.Context, msg Message) error {
	t.logger.Info("mail delivered",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

var defaultMailTemplates = map[string]string{
	MailTemplateActivation: `Hello {{ name }},

Thank you for creating an account on {{ app }} ({{ url }}).
To activate your account follow this link:

{{ link }}
`,
	MailTemplateNewEmail: `The email for your account on {{ app }} ({{ url }}) has just been changed from "{{ old }}" to "{{ new }}".

If this was not you, please contact us immediately.
`,
	MailTemplateNewPassword: `The password for your account on {{ app }} ({{ url }}) has just been changed.

If this was not you, please contact us immediately.
`,
}

// TemplateMailer renders pongo2 templates and hands messages to a Transport.
type TemplateMailer struct {
	from      string
	transport Transport
	templates map[string]*pongo2.Template
	logger    Logger
}

// TemplateMailerOption customizes a TemplateMailer.
type TemplateMailerOption func(*TemplateMailer) error

// WithMailTemplate registers or replaces the template called name.
func WithMailTemplate(name, source string) TemplateMailerOption {
	return func(m *TemplateMailer) error {
		tpl, err := pongo2.FromString(source)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse mail template").
				WithMetadata(map[string]any{"template": name})
		}
		m.templates[name] = tpl
		return nil
	}
}

// WithMailTransport sets the delivery transport.
func WithMailTransport(t Transport) TemplateMailerOption {
	return func(m *TemplateMailer) error {
		if t != nil {
			m.transport = t
		}
		return nil
	}
}

// WithMailLogger sets the mailer logger.
func WithMailLogger(logger Logger) TemplateMailerOption {
	return func(m *TemplateMailer) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// NewTemplateMailer builds a mailer with the activation, new email and new
// password templates loaded.
func NewTemplateMailer(from string, opts ...TemplateMailerOption) (*TemplateMailer, error) {
	_, logger := ResolveLogger("credentials.mailer", nil, nil)
	m := &TemplateMailer{
		from:      from,
		templates: map[string]*pongo2.Template{},
		logger:    logger,
	}

	for name, source := range defaultMailTemplates {
		if err := WithMailTemplate(name, source)(m); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.transport == nil {
		m.transport = NewLogTransport(m.logger)
	}

	return m, nil
}

// Render fills in the sender and the body of msg.
func (m *TemplateMailer) Render(msg Message) (Message, error) {
	if msg.From == "" {
		msg.From = m.from
	}

	if strings.TrimSpace(msg.To) == "" {
		return msg, goerrors.New("mail recipient is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if msg.Template == "" {
		return msg, nil
	}

	tpl, ok := m.templates[msg.Template]
	if !ok {
		return msg, goerrors.New(fmt.Sprintf("unknown mail template %q", msg.Template), goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	body, err := tpl.Execute(pongo2.Context(msg.Data))
	if err != nil {
		return msg, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template").
			WithMetadata(map[string]any{"template": msg.Template})
	}
	msg.Body = body

	return msg, nil
}

// Send renders msg and delivers it synchronously.
func (m *TemplateMailer) Send(ctx context.Context, msg Message) error {
	rendered, err := m.Render(msg)
	if err != nil {
		return err
	}

	if err := m.transport.Deliver(ctx, rendered); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver mail").
			WithMetadata(map[string]any{"to": rendered.To, "subject": rendered.Subject})
	}

	return nil
}

// QueuedMailer hands messages to a background worker. Send only fails when
// the queue is closed or full.
type QueuedMailer struct {
	next   Mailer
	queue  chan Message
	logger Logger
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueuedMailer starts a worker delivering through next. size bounds the
// number of pending messages.
func NewQueuedMailer(next Mailer, size int, logger Logger) *QueuedMailer {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		_, logger = ResolveLogger("credentials.mailer", nil, nil)
	}

	q := &QueuedMailer{
		next:   next,
		queue:  make(chan Message, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Send enqueues msg.
func (q *QueuedMailer) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrMailerClosed
	}

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled while queueing mail")
	case q.queue <- msg:
		return nil
	default:
		return goerrors.New("mail queue is full", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"to": msg.To, "subject": msg.Subject})
	}
}

// Close stops accepting messages and waits for the queue to drain.
func (q *QueuedMailer) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()

	<-q.done
	return nil
}

func (q *QueuedMailer) run() {
	defer close(q.done)
	for msg := range q.queue {
		if err := q.next.Send(context.Background(), msg); err != nil {
			q.logger.Error("queued mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}
}
