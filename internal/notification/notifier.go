package notification

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"reconpipe/pkg/logger"
)

// Event severities, ordered low to high. Content changes rank above
// first-time discoveries because a change is the more actionable signal.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Event is a pipeline finding pushed to the configured notifier.
type Event struct {
	Message   string
	Severity  string
	Details   map[string]string
	Timestamp time.Time
}

// Notifier delivers pipeline events. Implementations must not lose events
// silently: if delivery is impossible the event has to surface in the log.
type Notifier interface {
	Send(event Event) error
}

// LogNotifier is the fallback when no external notifier is configured.
// Events are written to the structured log so they always leave a trace.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.NewLogger(logrus.InfoLevel)}
}

func (n *LogNotifier) Send(event Event) error {
	fields := logger.Fields{"severity": event.Severity}
	for k, v := range event.Details {
		fields[k] = v
	}
	n.logger.WithFields(fields).Info(event.Message)
	return nil
}

// NewFromEnv returns a Discord notifier when DISCORD_TOKEN is set and a
// log-only notifier otherwise.
func NewFromEnv() Notifier {
	if os.Getenv("DISCORD_TOKEN") == "" {
		logger.Info("DISCORD_TOKEN not set - alerts will be logged only")
		return NewLogNotifier()
	}

	client, err := NewDiscordNotifier()
	if err != nil {
		logger.Errorf("Failed to initialize Discord client, falling back to log alerts: %v", err)
		return NewLogNotifier()
	}
	return client
}
