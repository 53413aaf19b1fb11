package revision

import (
	"context"
	"time"
)

// Presenter exposes a revision record to templates.
type Presenter struct {
	view      *View
	resolver  Resolver
	differ    DiffRenderer
	displayer Displayer
}

// PresenterOption customizes a Presenter.
type PresenterOption func(*Presenter)

// WithAuthContext sets the viewer used to pick current or external phrasing.
func WithAuthContext(auth AuthContext) PresenterOption {
	return func(p *Presenter) {
		p.view.Auth = normalizeAuth(auth)
	}
}

// WithPeopleLookup sets the lookup used for author and subject names.
func WithPeopleLookup(people PeopleLookup) PresenterOption {
	return func(p *Presenter) {
		p.view.People = people
	}
}

// WithDiffRenderer overrides the default LineDiffer.
func WithDiffRenderer(differ DiffRenderer) PresenterOption {
	return func(p *Presenter) {
		if differ != nil {
			p.differ = differ
		}
	}
}

// NewPresenter wraps record. The presenter is meant for a single render.
func NewPresenter(record Record, resolver Resolver, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		view:     NewView(record, Anonymous, nil),
		resolver: resolver,
		differ:   LineDiffer{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// PresentAll wraps every record with the same options.
func PresentAll(records []Record, resolver Resolver, opts ...PresenterOption) []*Presenter {
	out := make([]*Presenter, 0, len(records))
	for _, record := range records {
		out = append(out, NewPresenter(record, resolver, opts...))
	}
	return out
}

// Record returns the wrapped record.
func (p *Presenter) Record() Record {
	return p.view.Record
}

// CreatedAt returns when the change happened.
func (p *Presenter) CreatedAt() time.Time {
	return p.view.Record.CreatedAt
}

// Title returns the displayer title.
func (p *Presenter) Title() (string, error) {
	d, err := p.resolve()
	if err != nil {
		return "", err
	}
	return d.Title(), nil
}

// Description returns the change description phrased for the viewer.
func (p *Presenter) Description(ctx context.Context) (string, error) {
	d, err := p.resolve()
	if err != nil {
		return "", err
	}
	return Describe(ctx, d, p.view)
}

// Diff compares the old and new values.
func (p *Presenter) Diff() Diff {
	return p.differ.Diff(p.view.Record.OldValue, p.view.Record.NewValue)
}

// WasByCurrentUser reports whether the viewer made the change.
func (p *Presenter) WasByCurrentUser() bool {
	return p.view.WasByCurrentUser()
}

// Field returns the normalized field name.
func (p *Presenter) Field() string {
	return NormalizeField(p.view.Record.Key)
}

// View exposes the render view for displayers and templates.
func (p *Presenter) View() *View {
	return p.view
}

func (p *Presenter) resolve() (Displayer, error) {
	if p.displayer != nil {
		return p.displayer, nil
	}

	if p.resolver == nil {
		return nil, &NoDisplayerFoundError{
			Type:      p.view.Record.RevisionableType,
			Field:     p.view.Record.Key,
			Displayer: DisplayerName(p.view.Record.Key),
		}
	}

	factory, err := p.resolver.Resolve(p.view.Record.RevisionableType, p.view.Record.Key)
	if err != nil {
		return nil, err
	}

	p.displayer = factory()
	return p.displayer, nil
}
