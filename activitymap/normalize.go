package activitymap

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	auth "github.com/goliatone/go-auth-bearer"
)

const (
	// MetadataKeyOutcome stores the authentication or authorization outcome.
	MetadataKeyOutcome = "outcome"
	// MetadataKeyPath stores the request path of access events.
	MetadataKeyPath = "path"
	// MetadataKeyUsername stores the submitted or authenticated username.
	MetadataKeyUsername = "username"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	requestObjectType = "request"
	defaultActorID    = "anonymous"
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
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
// Access events are about the requested path, every other event is about
// the user.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := options.actorFallback
	if event.SubjectID > 0 {
		actorID = strconv.FormatInt(event.SubjectID, 10)
	}

	objectType := defaultObjectType
	objectID := strings.TrimSpace(event.Username)
	if event.EventType == auth.ActivityEventAccessDenied {
		objectType = requestObjectType
		objectID = event.Path
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used for anonymous events.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// LogSink writes every event as a structured audit line
func LogSink(logger *logrus.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		record := Normalize(event, opts...)

		fields := logrus.Fields{
			"actor_id":    record.ActorID,
			"verb":        record.Verb,
			"object_type": record.ObjectType,
			"object_id":   record.ObjectID,
			"channel":     record.Channel,
			"occurred_at": record.OccurredAt.Format(time.RFC3339),
		}
		for key, value := range record.Metadata {
			if _, exists := fields[key]; !exists {
				fields[key] = value
			}
		}

		logger.WithFields(fields).Info("auth activity")
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyOutcome, event.Outcome)
	set(MetadataKeyPath, event.Path)
	set(MetadataKeyUsername, strings.TrimSpace(event.Username))

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
