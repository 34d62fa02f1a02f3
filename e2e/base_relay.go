package e2e

import (
	"context"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"chat-relay/client"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

// BaseRelaySuite owns one relay engine per suite and hands out registered
// participants connected to it over real TCP.
type BaseRelaySuite struct {
	suite.Suite
	Config Config

	engine *runtime.Engine
	addr   string
	cancel context.CancelFunc
}

func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// SetupTest starts a fresh engine so every scenario begins with an empty
// room. With SERVER_ADDR set the suite targets that relay instead and the
// operator is responsible for its freshness.
func (s *BaseRelaySuite) SetupTest() {
	if s.Config.ServerAddr != "" {
		s.addr = s.Config.ServerAddr
		return
	}

	log := logs.GetLoggerFromString("WARN")
	sup := workers.NewSupervisor(log, time.Second)
	s.engine = runtime.NewEngine(log, sup, runtime.Options{Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Require().NoError(s.engine.Start(ctx))
	s.addr = s.engine.Addr().String()
}

func (s *BaseRelaySuite) TearDownTest() {
	if s.engine != nil {
		s.engine.Stop()
		s.cancel()
		s.engine = nil
	}
}

// Step prints a colorized header so suite output reads as a scenario script.
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Participant is one connected chat user. Server pushes are collected on
// channels so expectations can be expressed as ordered receives.
type Participant struct {
	Name    string
	Lines   chan string
	Rosters chan []string
	Lost    chan error

	client *client.Client
}

func (p *Participant) MessageReceived(text string) { p.Lines <- text }
func (p *Participant) RosterUpdated(names []string) { p.Rosters <- names }

func (p *Participant) Disconnected(err error) {
	select {
	case p.Lost <- err:
	default:
	}
}

// Send publishes one chat message.
func (p *Participant) Send(text string) error { return p.client.Send(text) }

// Leave drops the TCP connection without any protocol goodbye, exactly like
// a crashed client.
func (p *Participant) Leave() { p.client.Stop() }

// Join connects and registers a new participant under the given name.
func (s *BaseRelaySuite) Join(name string) *Participant {
	p := &Participant{
		Name:    name,
		Lines:   make(chan string, 64),
		Rosters: make(chan []string, 64),
		Lost:    make(chan error, 1),
	}
	c, err := client.Dial(s.addr, name, p, logs.GetLoggerFromString("WARN"))
	s.Require().NoError(err, "Failed to connect participant "+name)
	p.client = c
	return p
}

// ExpectLine waits for the next renderable line and asserts its content.
func (s *BaseRelaySuite) ExpectLine(p *Participant, want string) {
	select {
	case got := <-p.Lines:
		s.Require().Equal(want, got, "participant %s", p.Name)
	case <-time.After(s.Config.StepTimeout):
		s.Require().FailNow("timed out", "participant %s waiting for line %q", p.Name, want)
	}
}

// ExpectRoster waits for the next roster snapshot and asserts the exact
// ordered participant list.
func (s *BaseRelaySuite) ExpectRoster(p *Participant, want []string) {
	select {
	case got := <-p.Rosters:
		s.Require().Equal(want, got, "participant %s", p.Name)
	case <-time.After(s.Config.StepTimeout):
		s.Require().FailNow("timed out", "participant %s waiting for roster %v", p.Name, want)
	}
}
