package activitymap_test

import (
	"context"
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/activitymap"
	"github.com/goliatone/go-credentials/revision"
	"github.com/google/uuid"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := credentials.ActivityEvent{
		EventType:  credentials.ActivityEventUserStatusChanged,
		Actor:      credentials.ActorRef{ID: "admin-42", Type: "admin"},
		UserID:     "user-100",
		FromStatus: credentials.UserStatusActive,
		ToStatus:   credentials.UserStatusSuspended,
		Metadata: map[string]any{
			"ticket": "SEC-204",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "admin-42" {
		t.Fatalf("expected actor_id admin-42, got %q", out.ActorID)
	}
	if out.Verb != string(credentials.ActivityEventUserStatusChanged) {
		t.Fatalf("expected verb %q, got %q", credentials.ActivityEventUserStatusChanged, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "credentials" {
		t.Fatalf("expected channel credentials, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["ticket"] != "SEC-204" {
		t.Fatalf("expected metadata ticket SEC-204, got %#v", out.Metadata["ticket"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "admin" {
		t.Fatalf("expected metadata actor_type admin, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyFromStatus] != string(credentials.UserStatusActive) {
		t.Fatalf("expected metadata from_status active, got %#v", out.Metadata[activitymap.MetadataKeyFromStatus])
	}
	if out.Metadata[activitymap.MetadataKeyToStatus] != string(credentials.UserStatusSuspended) {
		t.Fatalf("expected metadata to_status suspended, got %#v", out.Metadata[activitymap.MetadataKeyToStatus])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := credentials.ActivityEvent{
		EventType: credentials.ActivityEventActivationResent,
		Actor:     credentials.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"email":                          "jane@example.com",
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithClock(func() time.Time { return fixed }),
		activitymap.WithObjectIDResolver(func(e credentials.ActivityEvent) string {
			if v, ok := e.Metadata["email"].(string); ok {
				return v
			}
			return ""
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "jane@example.com" {
		t.Fatalf("expected object_id jane@example.com, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "existing" {
		t.Fatalf("expected existing actor_type preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if !out.OccurredAt.Equal(fixed) {
		t.Fatalf("expected occurred_at from clock, got %v", out.OccurredAt)
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  credentials.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  credentials.ActivityEvent{Actor: credentials.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  credentials.ActivityEvent{Actor: credentials.ActorRef{ID: ""}, UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  credentials.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  credentials.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestNormalizeRevision(t *testing.T) {
	t.Parallel()

	subject := uuid.New()
	actor := uuid.New()
	ts := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	out := activitymap.NormalizeRevision(revision.Record{
		ID:               uuid.New(),
		RevisionableType: "user",
		RevisionableID:   subject,
		UserID:           &actor,
		Key:              "group_id",
		NewValue:         "Users",
		CreatedAt:        ts,
	})

	if out.ActorID != actor.String() {
		t.Fatalf("expected actor_id %s, got %q", actor, out.ActorID)
	}
	if out.Verb != "revision.group" {
		t.Fatalf("expected verb revision.group, got %q", out.Verb)
	}
	if out.ObjectID != subject.String() {
		t.Fatalf("expected object_id %s, got %q", subject, out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyField] != "group_id" {
		t.Fatalf("expected original field in metadata, got %#v", out.Metadata[activitymap.MetadataKeyField])
	}
	if out.Metadata[activitymap.MetadataKeyNewValue] != "Users" {
		t.Fatalf("expected new_value Users, got %#v", out.Metadata[activitymap.MetadataKeyNewValue])
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
}

func TestNormalizeRevisionWithholdsSecurityActor(t *testing.T) {
	t.Parallel()

	actor := uuid.New()
	records := []revision.Record{
		{RevisionableType: "user", RevisionableID: uuid.New(), UserID: &actor, Key: "suspended_at", Security: true},
		{RevisionableType: "user", RevisionableID: uuid.New(), Key: "status"},
	}

	out := activitymap.NormalizeRevisions(records, activitymap.WithActorFallback("security"))
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	for _, n := range out {
		if n.ActorID != "security" {
			t.Fatalf("expected withheld actor, got %q", n.ActorID)
		}
	}
	if out[0].Metadata[activitymap.MetadataKeySecurity] != true {
		t.Fatalf("expected security flag, got %#v", out[0].Metadata[activitymap.MetadataKeySecurity])
	}
}

func TestSinkForwardsNormalizedEvents(t *testing.T) {
	t.Parallel()

	var got []activitymap.Normalized
	sink := activitymap.Sink(func(_ context.Context, n activitymap.Normalized) error {
		got = append(got, n)
		return nil
	}, activitymap.WithDefaultChannel("audit"))

	err := sink.Record(context.Background(), credentials.ActivityEvent{
		EventType: credentials.ActivityEventAccountDeleted,
		UserID:    "user-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one forwarded event, got %d", len(got))
	}
	if got[0].Verb != string(credentials.ActivityEventAccountDeleted) || got[0].Channel != "audit" {
		t.Fatalf("unexpected normalized event %+v", got[0])
	}
}
