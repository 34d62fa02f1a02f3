package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/queue"
	"chat-relay/runtime/workers"
)

// Options groups the tunables of the relay core. The zero value of every
// timeout disables it, preserving the original blocking behavior.
type Options struct {
	Addr string

	// ReadTimeout, when positive, bounds each frame read so half-open
	// connections are eventually detected.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CensoredWords enables the moderation pass when non-empty.
	CensoredWords []string
	CensoredChar  rune

	// MonitorInterval enables periodic runtime stats logging when positive.
	MonitorInterval time.Duration
}

// Engine wires the relay together: one accept loop, one session read loop
// per connection, one broadcaster draining the shared outbox, all running
// under the supervisor. Start is not blocking; Stop performs a
// deterministic join of every task.
type Engine struct {
	log        *slog.Logger
	opts       Options
	supervisor contract.ISupervisor

	outbox    *queue.Queue[domain.Item]
	registry  *Registry
	moderator *moderation.Moderator

	ln       net.Listener
	sessions sync.WaitGroup
	supDone  chan struct{}
	started  time.Time
}

func NewEngine(log *slog.Logger, supervisor contract.ISupervisor, opts Options) *Engine {
	outbox := queue.New[domain.Item]()
	return &Engine{
		log:        log,
		opts:       opts,
		supervisor: supervisor,
		outbox:     outbox,
		registry:   NewRegistry(outbox, log),
		supDone:    make(chan struct{}),
	}
}

// Start binds the listening endpoint and launches every worker. A bind
// failure is the only fatal error of the whole system and is returned to
// the caller, which terminates the process with a non-zero status.
func (e *Engine) Start(ctx context.Context) error {
	if e.ln != nil {
		return errors.ErrAlreadyStarted
	}

	if len(e.opts.CensoredWords) > 0 {
		mod, err := moderation.NewModerator(e.opts.CensoredWords, e.opts.CensoredChar, e.log)
		if err != nil {
			return fmt.Errorf("moderation setup: %w", err)
		}
		e.moderator = &mod
	}

	ln, err := net.Listen("tcp", e.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", e.opts.Addr, err)
	}
	e.ln = ln
	e.started = time.Now()

	listener := NewListener(ln, e.registry, e.outbox, e.moderator,
		e.opts.ReadTimeout, e.opts.WriteTimeout, &e.sessions, e.log)
	broadcaster := NewBroadcaster(e.outbox, e.registry, e.log)
	e.supervisor.Add(listener, broadcaster)
	if e.opts.MonitorInterval > 0 {
		e.supervisor.Add(workers.NewMonitor(e.log, e.opts.MonitorInterval, e.Stats))
	}

	go func() {
		e.supervisor.Run(ctx)
		close(e.supDone)
	}()

	e.log.Info("Relay listening", "address", ln.Addr().String())
	return nil
}

// Addr reports the bound endpoint, nil before Start. Useful when the
// configured port is 0.
func (e *Engine) Addr() net.Addr {
	if e.ln == nil {
		return nil
	}
	return e.ln.Addr()
}

// Stats implements contract.StatsProvider for the monitor worker and the
// debug endpoint.
func (e *Engine) Stats() map[string]any {
	snapshot := e.registry.Snapshot()
	return map[string]any{
		"uptime":       time.Since(e.started).Round(time.Second).String(),
		"sessions":     len(snapshot),
		"participants": e.registry.ParticipantNames(),
		"queue_depth":  e.outbox.Len(),
		"states": lo.Map(snapshot, func(s *Session, _ int) string {
			return s.State().String()
		}),
	}
}

// Stop shuts the relay down: workers are canceled, every live session is
// closed (draining the registry), and all goroutines are joined before
// returning. In-flight items are not guaranteed delivered.
func (e *Engine) Stop() {
	if e.ln == nil {
		return
	}
	e.supervisor.Stop()
	// The accept loop must be joined before the drain: once it is gone no
	// new session can enter the wait group or the registry, so the snapshot
	// below is complete and Wait cannot race a concurrent Add.
	<-e.supDone
	for _, s := range e.registry.Snapshot() {
		s.Close()
	}
	e.sessions.Wait()
	e.log.Info("Relay stopped")
}
