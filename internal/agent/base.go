// Package agent wraps resume parsing in a uniform execute-and-report contract:
// every invocation returns a timed AgentResponse envelope and leaves behind an
// append-only activity log.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/resume-enhancer/internal/logging"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// ActivitySink receives each activity as it is appended, for real-time feeds.
// A sink error is logged and never fails the agent.
type ActivitySink interface {
	Publish(ctx context.Context, activity types.AgentActivity) error
}

// SinkFunc adapts a function to ActivitySink
type SinkFunc func(ctx context.Context, activity types.AgentActivity) error

// Publish calls f
func (f SinkFunc) Publish(ctx context.Context, activity types.AgentActivity) error {
	return f(ctx, activity)
}

// MultiSink publishes to every non-nil sink in order. All sinks are tried;
// the first error is returned.
func MultiSink(sinks ...ActivitySink) ActivitySink {
	live := make([]ActivitySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ctx context.Context, activity types.AgentActivity) error {
		var first error
		for _, s := range live {
			if err := s.Publish(ctx, activity); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// BaseAgent holds an agent's config and its activity log
type BaseAgent struct {
	config types.AgentConfig
	logger zerolog.Logger
	sink   ActivitySink
	now    func() time.Time

	mu         sync.Mutex
	activities []types.AgentActivity
}

// NewBaseAgent creates a BaseAgent. A nil logger uses the global logger; a nil sink disables publishing.
func NewBaseAgent(config types.AgentConfig, logger *zerolog.Logger, sink ActivitySink) *BaseAgent {
	l := logging.Logger
	if logger != nil {
		l = *logger
	}
	return &BaseAgent{
		config: config,
		logger: l.With().Str("agent", config.Name).Logger(),
		sink:   sink,
		now:    time.Now,
	}
}

// Config returns the agent configuration
func (b *BaseAgent) Config() types.AgentConfig {
	return b.config
}

// LogActivity appends an activity, logs it and forwards it to the sink
func (b *BaseAgent) LogActivity(ctx context.Context, action string, status types.ActivityStatus, details string) types.AgentActivity {
	activity := types.AgentActivity{
		ID:        uuid.NewString(),
		AgentName: b.config.Name,
		Action:    action,
		Timestamp: b.now().UTC(),
		Status:    status,
		Details:   details,
	}

	b.mu.Lock()
	b.activities = append(b.activities, activity)
	b.mu.Unlock()

	event := b.logger.Info()
	if status == types.ActivityError {
		event = b.logger.Warn()
	}
	event = event.Str("status", string(status))
	if details != "" {
		event = event.Str("details", details)
	}
	event.Msg(action)

	if b.sink != nil {
		if err := b.sink.Publish(ctx, activity); err != nil {
			b.logger.Error().Err(err).Str("activity_id", activity.ID).Msg("failed to publish activity")
		}
	}

	return activity
}

// Activities returns a snapshot of the log; mutating it does not affect the agent
func (b *BaseAgent) Activities() []types.AgentActivity {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.AgentActivity, len(b.activities))
	copy(out, b.activities)
	return out
}

// ClearActivities empties the log
func (b *BaseAgent) ClearActivities() {
	b.mu.Lock()
	b.activities = nil
	b.mu.Unlock()
}
