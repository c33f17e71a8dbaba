// SPDX-License-Identifier:Apache-2.0

// Package em is the per-radio EasyMesh protocol engine. An Engine owns
// the ingress queue of its radio and a dedicated worker that drains it,
// routes inbound messages to the registered sub-protocol phases and
// drives the active command's phase on every protocol timeout.
package em

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/dm"
	"github.com/onewifi-go/easymesh/internal/queue"
	"github.com/onewifi-go/easymesh/internal/tlv"
	"github.com/onewifi-go/easymesh/internal/transport"
	"github.com/onewifi-go/easymesh/internal/wire"
)

var (
	// ErrNoCommand is returned when an operation needs an active
	// command and there is none.
	ErrNoCommand = errors.New("no active command")
	// ErrNotRunning is returned by Init on an engine that has been
	// deinitialized.
	ErrNotRunning = errors.New("engine not running")
)

const (
	// DefaultTimeout is the protocol timeout driving state progression.
	DefaultTimeout = time.Second
	// NonceLen is the length of each WSC nonce.
	NonceLen = 16

	frameBufLen = 2048
)

// DataModel is the part of the data model an engine uses.
type DataModel interface {
	tlv.Source
	Commit(src *dm.EasyMesh, target dm.CommitTarget, ruid dm.MAC) error
	LogConfig(l log.Logger)
}

// Receiver is the receive side of the AL interface.
type Receiver interface {
	InstallFilter() error
	Receive(b []byte) (int, error)
	Close() error
}

// Sender transmits a frame on a named interface.
type Sender interface {
	Send(ifname string, frame []byte, dst net.HardwareAddr) (int, error)
}

// Config holds the collaborators of an engine.
type Config struct {
	Identity  Identity
	DataModel DataModel
	Phases    []Registration
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Sender defaults to transport.Sender.
	Sender Sender
	// Listen opens the AL receive socket. Defaults to transport.Start.
	Listen func(l log.Logger, ifname string) (Receiver, error)
	// ResolveInterface finds a local interface name from its MAC.
	// Defaults to transport.NameFromMAC.
	ResolveInterface func(mac net.HardwareAddr) (string, error)
}

// Nonces are the enrollee and registrar nonces handed to the crypto
// subsystem.
type Nonces struct {
	Enrollee  [NonceLen]byte
	Registrar [NonceLen]byte
}

type eventQueue interface {
	Push(evt *queue.Event)
	PopBlocking(timeout time.Duration) (*queue.Event, error)
	TryPop() (*queue.Event, bool)
	Wake()
	Close()
}

// Engine is the protocol engine of one radio.
type Engine struct {
	logger  log.Logger
	id      Identity
	radio   string
	dm      DataModel
	timeout time.Duration
	sender  Sender
	listen  func(log.Logger, string) (Receiver, error)
	resolve func(net.HardwareAddr) (string, error)
	nonces  Nonces

	queue  eventQueue
	tables tables
	bufs   sync.Pool
	msgID  atomic.Uint32

	mu      sync.Mutex
	state   State
	orch    OrchState
	cmd     *command.Command
	started bool
	exit    bool
	deinit  bool
	rx      Receiver
	err     error
	done    chan struct{}
}

// New returns an engine in the initial state of its role, with
// orchestration idle. The worker is started by Init.
func New(l log.Logger, cfg Config) (*Engine, error) {
	if cfg.DataModel == nil {
		return nil, errors.New("engine needs a data model")
	}

	ret := &Engine{
		logger:  log.With(l, "radio", cfg.Identity.Radio.Name, "role", cfg.Identity.Role),
		id:      cfg.Identity,
		radio:   cfg.Identity.Radio.MAC.String(),
		dm:      cfg.DataModel,
		timeout: cfg.Timeout,
		sender:  cfg.Sender,
		listen:  cfg.Listen,
		resolve: cfg.ResolveInterface,
		queue:   queue.New(),
		state:   initialState(cfg.Identity.Role),
		orch:    OrchIdle,
		done:    make(chan struct{}),
	}
	if ret.timeout <= 0 {
		ret.timeout = DefaultTimeout
	}
	if ret.sender == nil {
		ret.sender = transport.Sender{}
	}
	if ret.listen == nil {
		ret.listen = func(l log.Logger, ifname string) (Receiver, error) {
			t, err := transport.Start(l, ifname)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	if ret.resolve == nil {
		ret.resolve = transport.NameFromMAC
	}
	ret.bufs.New = func() interface{} {
		b := make([]byte, frameBufLen)
		return &b
	}

	if _, err := rand.Read(ret.nonces.Enrollee[:]); err != nil {
		return nil, fmt.Errorf("generating enrollee nonce: %w", err)
	}
	if _, err := rand.Read(ret.nonces.Registrar[:]); err != nil {
		return nil, fmt.Errorf("generating registrar nonce: %w", err)
	}

	ret.tables = buildTables(ret.logger, ret, ret.id.Role, cfg.Phases)
	stats.State(ret.radio, ret.state)
	return ret, nil
}

// Init starts the engine. If it owns the AL interface it opens the
// receive socket first; failing to open it aborts startup, failing to
// install the packet filter only leaves the engine without a receive
// path.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deinit {
		return ErrNotRunning
	}
	if e.started {
		return errors.New("engine already started")
	}

	e.dm.LogConfig(e.logger)

	if e.id.IsAL() {
		rx, err := e.listen(e.logger, e.id.Radio.Name)
		if err != nil {
			level.Error(e.logger).Log("op", "init", "error", err, "msg", "failed to start AL interface")
			return fmt.Errorf("starting AL interface %q: %w", e.id.Radio.Name, err)
		}
		if err := rx.InstallFilter(); err != nil {
			level.Error(e.logger).Log("op", "init", "error", err, "msg", "packet filter not installed, no frames will be received")
		} else {
			e.rx = rx
			go e.receive(rx)
		}
	}

	e.started = true
	go e.run()
	level.Info(e.logger).Log("op", "init", "state", e.state, "msg", "engine started")
	return nil
}

// Stop asks the worker to exit. It returns immediately; the worker
// finishes the events it is dispatching first.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.exit = true
	e.mu.Unlock()
	e.queue.Wake()
}

// Deinit stops the worker, waits for it, then closes the receive
// socket and the queue. Queued events are released.
func (e *Engine) Deinit() error {
	e.Stop()

	e.mu.Lock()
	if e.deinit {
		e.mu.Unlock()
		return nil
	}
	started, rx := e.started, e.rx
	e.deinit = true
	e.rx = nil
	e.mu.Unlock()

	e.queue.Close()
	if started {
		<-e.done
	} else {
		close(e.done)
	}
	if rx != nil {
		return rx.Close()
	}
	return nil
}

// Done is closed when the worker exits, on Stop or on a fault.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Err returns the fault that ended the worker, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Push queues an event for the worker. The queue takes ownership of
// the event's buffer.
func (e *Engine) Push(evt *queue.Event) {
	e.queue.Push(evt)
}

// Nonces returns the nonces generated at construction.
func (e *Engine) Nonces() Nonces { return e.nonces }

func (e *Engine) exiting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exit
}

func (e *Engine) run() {
	defer close(e.done)

	for !e.exiting() {
		evt, err := e.queue.PopBlocking(e.timeout)
		switch {
		case err == nil && evt == nil:
			// Woken with nothing queued.
		case err == nil:
			e.dispatch(evt)
			for {
				evt, ok := e.queue.TryPop()
				if !ok {
					break
				}
				e.dispatch(evt)
			}
		case errors.Is(err, queue.ErrTimeout):
			if !e.exiting() {
				e.handleTimeout()
			}
		case errors.Is(err, queue.ErrClosed):
			return
		default:
			level.Error(e.logger).Log("op", "run", "error", err, "msg", "queue wait failed, engine exiting")
			e.fail("wait", err)
			return
		}
	}
}

// fail records the first fault and stops the worker; Done and Err
// report it.
func (e *Engine) fail(op string, err error) {
	stats.Fault(e.radio, op)
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.exit = true
	e.mu.Unlock()
	e.queue.Wake()
}

func (e *Engine) dispatch(evt *queue.Event) {
	defer evt.Release()

	stats.Event(e.radio, evt.Kind)
	switch evt.Kind {
	case queue.KindFrame:
		e.process(evt.Frame)
	default:
		level.Error(e.logger).Log("op", "dispatch", "kind", evt.Kind, "msg", "unexpected event kind, dropping")
		stats.Dropped(e.radio, "kind")
	}
}

// process routes one frame by its CMDU message type. Malformed and
// unroutable frames are dropped silently.
func (e *Engine) process(frame []byte) {
	msg, err := wire.Parse(frame)
	if err != nil {
		level.Debug(e.logger).Log("op", "process", "error", err, "msg", "dropping malformed frame")
		stats.Dropped(e.radio, "malformed")
		return
	}

	p, ok := e.tables.byMessage[msg.CMDU.Type]
	if !ok {
		stats.Dropped(e.radio, "unroutable")
		return
	}
	level.Debug(e.logger).Log("op", "process", "type", msg.CMDU.Type, "phase", p.name, "src", msg.Source)
	p.handler.ProcessMessage(msg)
}

// handleTimeout progresses the active command's phase. It is a no-op
// unless orchestration is in progress and the state is inside the
// phase's open range.
func (e *Engine) handleTimeout() {
	stats.Timeout(e.radio)

	e.mu.Lock()
	orch, cmd, state := e.orch, e.cmd, e.state
	e.mu.Unlock()

	if orch != OrchInProgress {
		return
	}
	if cmd == nil {
		level.Error(e.logger).Log("op", "timeout", "msg", "orchestration in progress without an active command")
		return
	}
	p, ok := e.tables.byCommand[cmd.Type]
	if !ok || !p.rng.Open(state) {
		return
	}
	p.handler.ProcessState()
}

func (e *Engine) receive(rx Receiver) {
	for {
		bp := e.bufs.Get().(*[]byte)
		n, err := rx.Receive(*bp)
		if err != nil {
			e.bufs.Put(bp)
			if e.exiting() {
				return
			}
			level.Error(e.logger).Log("op", "receive", "error", err, "msg", "receive failed, engine exiting")
			e.fail("receive", fmt.Errorf("receiving on %q: %w", e.id.Radio.Name, err))
			return
		}
		e.Push(queue.NewFrameEvent((*bp)[:n], func([]byte) { e.bufs.Put(bp) }))
	}
}

// Send transmits frame. Agents send on the active command's AL
// interface, controllers on their own. Multicast frames go to the 1905
// group, others to the destination in the frame header.
func (e *Engine) Send(frame []byte, multicast bool) (int, error) {
	ifname, err := e.sendInterface()
	if err != nil {
		level.Error(e.logger).Log("op", "send", "error", err, "msg", "no interface to send on")
		return 0, err
	}

	dst := wire.MulticastAddr
	if !multicast {
		if dst, err = wire.DestinationOf(frame); err != nil {
			return 0, err
		}
	}

	n, err := e.sender.Send(ifname, frame, dst)
	if err != nil {
		level.Error(e.logger).Log("op", "send", "ifname", ifname, "dst", dst, "error", err, "msg", "failed to send frame")
		return n, err
	}
	return n, nil
}

func (e *Engine) sendInterface() (string, error) {
	if e.id.Role == RoleAgent {
		cmd := e.Command()
		if cmd == nil {
			return "", ErrNoCommand
		}
		if cmd.AgentAL.Name != "" {
			return cmd.AgentAL.Name, nil
		}
		return e.resolve(cmd.AgentAL.MAC)
	}
	return e.resolve(e.id.ALMAC.HardwareAddr())
}

// MatchesFreqBand reports whether the active command targets band.
func (e *Engine) MatchesFreqBand(band dm.FreqBand) bool {
	cmd := e.Command()
	return cmd != nil && cmd.FreqBand == band
}

// Identity implements Session.
func (e *Engine) Identity() Identity { return e.id }

// Logger implements Session.
func (e *Engine) Logger() log.Logger { return e.logger }

// State implements Session.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetState implements Session.
func (e *Engine) SetState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setStateLocked(s)
}

func (e *Engine) setStateLocked(s State) {
	if s != e.state {
		level.Debug(e.logger).Log("op", "setState", "from", e.state, "to", s)
	}
	e.state = s
	stats.State(e.radio, s)
}

// OrchState implements Session.
func (e *Engine) OrchState() OrchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orch
}

// Command implements Session.
func (e *Engine) Command() *command.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd
}

// Builder implements Session.
func (e *Engine) Builder() *tlv.Builder {
	b := tlv.NewBuilder(e.logger, e.dm, e.id.Radio.MAC)
	if cmd := e.Command(); cmd != nil {
		b = b.WithOpClass(cmd.OpClass, cmd.Channel)
	}
	return b
}

// NextMessageID implements Session.
func (e *Engine) NextMessageID() uint16 {
	return uint16(e.msgID.Add(1))
}
