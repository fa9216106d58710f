// Package service contains small infrastructure services that sit
// between the application layer and external transports.
package service

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/arkok-lms/curriculum-engine/config"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
)

// IDGeneratorImpl implements shared ID generation.
type IDGeneratorImpl struct{}

func NewIDGenerator() *IDGeneratorImpl {
	return &IDGeneratorImpl{}
}

func (g *IDGeneratorImpl) GenerateID() string {
	return uuid.New().String()
}

// ══════════════════════════════════════════════════════════════════════════════
// BROADCASTER
// ══════════════════════════════════════════════════════════════════════════════

// Broadcaster publishes domain events to the event bus, gated by the
// per-school broadcast feature flags. Handlers pass every event they
// produce through here; the flags decide which ones actually go out.
type Broadcaster struct {
	bus    shared.EventPublisher
	flags  *config.FeatureFlags
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given bus.
func NewBroadcaster(bus shared.EventPublisher, flags *config.FeatureFlags, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		bus:    bus,
		flags:  flags,
		logger: logger,
	}
}

// Broadcast publishes the event if its broadcast flag is enabled for
// the school. Unknown event types are published unconditionally.
func (b *Broadcaster) Broadcast(schoolID string, event shared.Event) error {
	if b.bus == nil {
		return nil
	}

	if flag, gated := broadcastFlagFor(event.EventType()); gated {
		fctx := &config.FeatureContext{SchoolID: schoolID}
		if b.flags != nil && !b.flags.IsEnabled(flag, fctx) {
			b.logger.Debug("broadcast suppressed by feature flag",
				"event_type", string(event.EventType()),
				"school_id", schoolID,
			)
			return nil
		}
	}

	if err := b.bus.Publish(event); err != nil {
		b.logger.Warn("failed to broadcast event",
			"event_type", string(event.EventType()),
			"error", err,
		)
		return err
	}
	return nil
}

// broadcastFlagFor maps an event type to its gating flag.
func broadcastFlagFor(eventType shared.EventType) (flag string, gated bool) {
	switch eventType {
	case shared.EventTaskSettled, shared.EventRewardsRolledBack:
		return config.FeatureBroadcastTaskSettled, true
	case shared.EventLevelUp:
		return config.FeatureBroadcastLevelUp, true
	case shared.EventPlanPublished:
		return config.FeatureBroadcastPublish, true
	default:
		return "", false
	}
}
