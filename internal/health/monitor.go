package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/icgc-argo/argo-service-template/internal/redact"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// defaultPingTimeout bounds each ping.
const defaultPingTimeout = 5 * time.Second

// Pinger checks that the database answers. *mongo.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Monitor pings the database on an interval and records the result in a State.
type Monitor struct {
	pinger      Pinger
	state       *State
	interval    time.Duration
	pingTimeout time.Duration
	logger      *slog.Logger
}

// NewMonitor creates a Monitor updating state every interval.
func NewMonitor(pinger Pinger, state *State, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		pinger:      pinger,
		state:       state,
		interval:    interval,
		pingTimeout: defaultPingTimeout,
		logger:      logger,
	}
}

// Check pings once and records the outcome.
func (m *Monitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()

	status := StatusOK
	if err := m.pinger.Ping(ctx, readpref.Primary()); err != nil {
		m.logger.Error("database ping failed", "error", redact.Error(err))
		status = StatusError
	}

	if prev := m.state.Snapshot().Status; prev != status {
		m.logger.Info("database health changed", "from", string(prev), "to", string(status))
	}
	m.state.Set(status)
	return status
}

// Run checks immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
