package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/queue"
)

// Listener accepts inbound connections and spawns one session per accepted
// connection. Accept failures are logged and do not stop the loop; only
// closing the underlying listener (via ctx) ends it. Admission is
// unlimited: there is no cap on concurrent sessions.
type Listener struct {
	ln        net.Listener
	registry  *Registry
	outbox    *queue.Queue[domain.Item]
	moderator *moderation.Moderator

	readTimeout  time.Duration
	writeTimeout time.Duration

	sessions *sync.WaitGroup
	log      *slog.Logger
}

func NewListener(ln net.Listener, registry *Registry, outbox *queue.Queue[domain.Item],
	moderator *moderation.Moderator, readTimeout, writeTimeout time.Duration,
	sessions *sync.WaitGroup, log *slog.Logger) *Listener {
	return &Listener{
		ln:           ln,
		registry:     registry,
		outbox:       outbox,
		moderator:    moderator,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		sessions:     sessions,
		log:          log,
	}
}

func (l *Listener) Run(ctx context.Context) error {
	// Accept does not observe ctx; closing the listener unblocks it.
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				l.log.Debug("Stopping worker")
				return nil
			}
			l.log.Warn("Accept failed", "error", err)
			continue
		}
		l.adopt(ctx, conn)
	}
}

// adopt registers a session for the connection and starts its read loop in
// its own goroutine, so a slow handshake never blocks other accepts.
func (l *Listener) adopt(ctx context.Context, conn net.Conn) {
	s := NewSession(conn, l.registry, l.outbox, l.moderator,
		l.readTimeout, l.writeTimeout, l.log)
	l.registry.Add(s)
	l.log.Debug("Connection accepted", "session_id", s.ID(), "remote", conn.RemoteAddr())

	l.sessions.Add(1)
	go func() {
		defer l.sessions.Done()
		s.Run(ctx)
	}()
}
