package activitymap

import (
	"context"
	"strings"
	"time"

	roadside "github.com/goliatone/go-roadside"
)

const (
	// MetadataKeyActorType stores the actor type derived from roadside.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromStatus stores the source session status of a transition.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the target session status of a transition.
	MetadataKeyToStatus = "to_status"
)

const (
	ObjectTypeUser    = "user"
	ObjectTypeSession = "session"

	defaultActorID = roadside.ActorTypeSystem
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
	channel       string
	actorFallback string
	now           func() time.Time
}

// Normalize converts a roadside.ActivityEvent into a generic normalized
// shape. Events carrying a session id are about that session, everything
// else is about the user.
func Normalize(event roadside.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{actorFallback: defaultActorID, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		options.actorFallback,
	)

	objectType, objectID := ObjectTypeUser, strings.TrimSpace(event.UserID)
	if sid := strings.TrimSpace(event.SessionID); sid != "" {
		objectType, objectID = ObjectTypeSession, sid
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    firstNonEmpty(options.channel, channelOf(event.EventType)),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithChannel forces the channel instead of deriving it from the event type.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// LogSink writes every event as one structured audit line.
func LogSink(logger roadside.Logger, opts ...Option) roadside.ActivitySink {
	if logger == nil {
		logger = roadside.DefaultLogger()
	}
	return roadside.ActivitySinkFunc(func(_ context.Context, event roadside.ActivityEvent) error {
		out := Normalize(event, opts...)
		logger.Info("activity",
			"verb", out.Verb,
			"channel", out.Channel,
			"actor_id", out.ActorID,
			"object_type", out.ObjectType,
			"object_id", out.ObjectID,
			"metadata", out.Metadata,
			"occurred_at", out.OccurredAt,
		)
		return nil
	})
}

// channelOf returns the event type prefix: auth, session or user.
func channelOf(eventType roadside.ActivityEventType) string {
	s := string(eventType)
	if i := strings.IndexByte(s, '.'); i > 0 {
		return s[:i]
	}
	return s
}

func normalizeMetadata(event roadside.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			set(MetadataKeyActorType, actorType)
		}
	}
	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, event.FromStatus)
	}
	if event.ToStatus != "" {
		set(MetadataKeyToStatus, event.ToStatus)
	}

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
