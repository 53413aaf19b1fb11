// Package activitymap flattens credentials activity events and revisions
// into one record shape for feeds and audit exporters.
package activitymap

import (
	"context"
	"strings"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/revision"
)

const (
	MetadataKeyActorType  = "actor_type"
	MetadataKeyFromStatus = "from_status"
	MetadataKeyToStatus   = "to_status"
	MetadataKeyField      = "field"
	MetadataKeyOldValue   = "old_value"
	MetadataKeyNewValue   = "new_value"
	MetadataKeySecurity   = "security"
)

// RevisionVerbPrefix prefixes the verb of normalized revisions.
const RevisionVerbPrefix = "revision."

const (
	defaultChannel    = "credentials"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(credentials.ActivityEvent) string
	now              func() time.Time
}

// Normalize converts an activity event into the normalized shape.
func Normalize(event credentials.ActivityEvent, opts ...Option) Normalized {
	options := buildOptions(opts)

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		options.actorFallback,
	)

	objectID := strings.TrimSpace(event.UserID)
	if options.objectIDResolver != nil {
		objectID = strings.TrimSpace(options.objectIDResolver(event))
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   eventMetadata(event),
		OccurredAt: occurredAt(event.OccurredAt, options.now),
	}
}

// NormalizeRevision converts a revision record. Security records never carry
// their actor, the actor falls back like an event without one.
func NormalizeRevision(record revision.Record, opts ...Option) Normalized {
	options := buildOptions(opts)

	actorID := options.actorFallback
	if !record.Security && record.UserID != nil {
		actorID = record.UserID.String()
	}

	objectType := strings.TrimSpace(record.RevisionableType)
	if objectType == "" {
		objectType = options.objectType
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       RevisionVerbPrefix + revision.NormalizeField(record.Key),
		ObjectType: objectType,
		ObjectID:   record.RevisionableID.String(),
		Channel:    options.channel,
		Metadata: map[string]any{
			MetadataKeyField:    record.Key,
			MetadataKeyOldValue: record.OldValue,
			MetadataKeyNewValue: record.NewValue,
			MetadataKeySecurity: record.Security,
		},
		OccurredAt: occurredAt(record.CreatedAt, options.now),
	}
}

// NormalizeRevisions converts records in order.
func NormalizeRevisions(records []revision.Record, opts ...Option) []Normalized {
	out := make([]Normalized, 0, len(records))
	for _, record := range records {
		out = append(out, NormalizeRevision(record, opts...))
	}
	return out
}

// Sink forwards normalized events to fn. It satisfies credentials.ActivitySink.
func Sink(fn func(ctx context.Context, n Normalized) error, opts ...Option) credentials.ActivitySink {
	return credentials.ActivitySinkFunc(func(ctx context.Context, event credentials.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(credentials.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func buildOptions(opts []Option) normalizeOptions {
	options := normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

func occurredAt(at time.Time, now func() time.Time) time.Time {
	if at.IsZero() {
		return now().UTC()
	}
	return at
}

func eventMetadata(event credentials.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string, overwrite bool) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; exists && !overwrite {
			return
		}
		metadata[key] = value
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type), false)
	set(MetadataKeyFromStatus, string(event.FromStatus), true)
	set(MetadataKeyToStatus, string(event.ToStatus), true)

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
