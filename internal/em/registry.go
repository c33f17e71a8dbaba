// SPDX-License-Identifier:Apache-2.0

package em

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/tlv"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// Handler is a sub-protocol state machine. ProcessMessage is called for
// every inbound message routed to the phase, ProcessState on protocol
// timeouts while the active command belongs to the phase and the state
// is inside its open range. Both run on the engine's worker. The
// message and its buffers are only valid for the duration of the call.
type Handler interface {
	ProcessMessage(msg *wire.Message)
	ProcessState()
}

// Session is the engine as seen by a handler.
type Session interface {
	Identity() Identity
	State() State
	SetState(s State)
	OrchState() OrchState
	SetOrchState(s OrchState)
	// Command returns the active command, or nil.
	Command() *command.Command
	// SubmitCommand starts orchestrating cmd in place of the active
	// command. Phases use it for exchanges the peer starts.
	SubmitCommand(cmd *command.Command)
	// Send transmits a complete frame, to the 1905 multicast group or
	// to the destination written in the frame.
	Send(frame []byte, multicast bool) (int, error)
	// Builder returns a TLV builder for the engine's radio.
	Builder() *tlv.Builder
	NextMessageID() uint16
	// Nonces returns the WSC nonces of the engine.
	Nonces() Nonces
	Logger() log.Logger
}

// Registration describes a phase: its state range, the commands whose
// timeouts it drives and the message types it consumes.
type Registration struct {
	Name     string
	Role     Role
	Range    Range
	Commands []command.Type
	Messages []wire.MessageType
	New      func(Session) Handler
}

type phase struct {
	name    string
	rng     Range
	handler Handler
}

// tables are built once per engine and read without locking.
type tables struct {
	byCommand map[command.Type]*phase
	byMessage map[wire.MessageType]*phase
}

func buildTables(l log.Logger, s Session, role Role, regs []Registration) tables {
	t := tables{
		byCommand: map[command.Type]*phase{},
		byMessage: map[wire.MessageType]*phase{},
	}
	for _, r := range regs {
		if r.Role != role || r.New == nil {
			continue
		}
		p := &phase{name: r.Name, rng: r.Range, handler: r.New(s)}
		for _, c := range r.Commands {
			if prev, ok := t.byCommand[c]; ok {
				level.Warn(l).Log("op", "register", "phase", r.Name, "command", c, "previous", prev.name, "msg", "command already routed, overriding")
			}
			t.byCommand[c] = p
		}
		for _, m := range r.Messages {
			if prev, ok := t.byMessage[m]; ok {
				level.Warn(l).Log("op", "register", "phase", r.Name, "message", m, "previous", prev.name, "msg", "message type already routed, overriding")
			}
			t.byMessage[m] = p
		}
	}
	return t
}

// initialStates maps a submitted command to the protocol state its
// orchestration starts from. Commands missing here leave the state
// untouched.
var initialStates = map[command.Type]State{
	command.StaList:        StateTopologyNotify,
	command.DevInit:        StateConfigNone,
	command.CfgRenew:       StateAutoconfigRenewPending,
	command.StartDPP:       StateProvNone,
	command.APCapQuery:     StateAPCapReport,
	command.ClientCapQuery: StateClientCapReport,
}
