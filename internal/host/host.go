package host

import (
	"context"
	"os/exec"
	"time"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// DefaultCommandTimeout bounds every external command a beacon runs.
const DefaultCommandTimeout = 30 * time.Second

var _ beacon.Capabilities = (*Host)(nil)

// Host implements beacon.Capabilities for the local machine.
type Host struct {
	// commandTimeout is the deadline applied to every external command.
	commandTimeout time.Duration
}

// Option configures the host adapter.
type Option func(*Host)

// WithCommandTimeout sets the deadline of external commands.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(h *Host) {
		if timeout > 0 {
			h.commandTimeout = timeout
		}
	}
}

// New creates the host adapter.
func New(opts ...Option) *Host {
	h := &Host{
		commandTimeout: DefaultCommandTimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// LookPath searches for an executable in PATH.
func (h *Host) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// callContext returns a context with the command timeout if configured,
// otherwise a cancellable child context without a deadline.
func (h *Host) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.commandTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, h.commandTimeout)
}
