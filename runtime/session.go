package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/queue"
	"chat-relay/wire"
)

// Session binds one client connection to the relay core.
//
// Its read loop runs in a dedicated goroutine: the first inbound frame is
// always interpreted as the display name, every later text frame becomes a
// chat line on the shared outbox. Writes go through Deliver, one at a time.
// Close is idempotent and may be triggered by the read loop, by the
// broadcaster after a failed delivery, or by shutdown.
type Session struct {
	id     uuid.UUID
	conn   net.Conn
	reader *wire.Reader
	writer *wire.Writer

	writeMu sync.Mutex

	state     atomic.Int32
	activated atomic.Bool
	name      string // immutable once activated

	registry  *Registry
	outbox    *queue.Queue[domain.Item]
	moderator *moderation.Moderator

	readTimeout  time.Duration
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}

	log *slog.Logger
}

func NewSession(conn net.Conn, registry *Registry, outbox *queue.Queue[domain.Item],
	moderator *moderation.Moderator, readTimeout, writeTimeout time.Duration,
	log *slog.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:           id,
		conn:         conn,
		reader:       wire.NewReader(conn),
		writer:       wire.NewWriter(conn),
		registry:     registry,
		outbox:       outbox,
		moderator:    moderator,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		log:          log.With("session_id", id, "remote", conn.RemoteAddr()),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Name returns the registered display name, empty until activation.
func (s *Session) Name() string { return s.name }

func (s *Session) State() domain.SessionState {
	return domain.SessionState(s.state.Load())
}

// Activated reports whether the session ever reached the active state.
// Unlike State it keeps answering true after the session closes, which is
// what the registry needs to retire the participant entry.
func (s *Session) Activated() bool { return s.activated.Load() }

// Done is closed when the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run executes the read loop until the peer disconnects, an unrecoverable
// read error occurs, or ctx is canceled. It always leaves the session
// closed.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()

	// ReadFrame does not observe ctx; closing the connection unblocks it.
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	for {
		if s.readTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		frame, err := s.reader.ReadFrame()
		if err != nil {
			if stderrors.Is(err, errors.ErrUnknownFrame) {
				// Malformed but stream-aligned: drop and keep reading.
				s.log.Debug("Dropping malformed frame", "error", err)
				continue
			}
			if ctx.Err() == nil && s.State() != domain.StateClosed {
				s.log.Debug("Read loop ending", "error", err)
			}
			return
		}
		if frame.Kind != wire.KindText {
			s.log.Debug("Dropping non-text frame from client", "kind", frame.Kind)
			continue
		}

		if s.State() == domain.StateConnecting {
			s.register(frame.Text)
			continue
		}
		s.relay(frame.Text)
	}
}

// register performs the one-time Connecting -> Active transition. Whatever
// the first frame contains becomes the display name. The registry arbitrates
// against a close racing the registration: when the close wins, the name
// never enters the roster and the read loop exits on the closed connection.
func (s *Session) register(name string) {
	if !s.registry.Activate(s, name) {
		s.log.Debug("Registration lost to a concurrent close", "name", name)
	}
}

// relay turns one inbound text frame into a chat line on the shared outbox.
// Lines are never written directly to any connection; the broadcaster is
// the only writer path, which is what gives all clients one global order.
func (s *Session) relay(text string) {
	if s.moderator != nil {
		censored, found := s.moderator.Censor(text)
		if len(found) > 0 {
			s.log.Info("Message censored", "words", len(found))
		}
		text = censored
	}

	msg := domain.Message{
		ID:        uuid.New(),
		SenderID:  s.id,
		Sender:    s.name,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	s.outbox.Enqueue(domain.ChatLine{Text: msg.Render()})
	s.log.Debug("Message relayed", "message_id", msg.ID)
}

// Deliver writes one outbound item to this client, exclusive of any other
// delivery to the same session. A delivery failure is local to this
// recipient; the caller decides whether to close the session.
func (s *Session) Deliver(item domain.Item) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() == domain.StateClosed {
		return errors.ErrSessionClosed
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.writer.WriteItem(item)
}

// Close tears the session down exactly once: the registry entry goes first
// (together with the departure notice and roster update when the session
// was active), then the connection is released. Calling Close again has no
// observable effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(domain.StateClosed))
		s.registry.Remove(s)
		_ = s.conn.Close()
		close(s.done)
		s.log.Debug("Session closed")
	})
}
