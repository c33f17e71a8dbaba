// SPDX-License-Identifier:Apache-2.0

package em

import (
	"fmt"

	"github.com/onewifi-go/easymesh/internal/dm"
)

// Role is the EasyMesh service an engine runs.
type Role int

const (
	RoleAgent Role = iota
	RoleController
)

func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleController:
		return "controller"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Profile is the Multi-AP profile the engine advertises.
type Profile int

const (
	Profile1 Profile = iota + 1
	Profile2
	Profile3
)

func (p Profile) String() string {
	return fmt.Sprintf("profile-%d", int(p))
}

// Interface is a named local interface.
type Interface struct {
	Name string
	MAC  dm.MAC
}

// Identity is fixed at construction.
type Identity struct {
	// Radio is the interface the engine serves. Its MAC is the radio
	// unique identifier used for data model lookups.
	Radio   Interface
	ALMAC   dm.MAC
	Role    Role
	Profile Profile
}

// IsAL reports whether the engine owns the AL interface and therefore
// the receive socket.
func (id Identity) IsAL() bool {
	return id.Radio.MAC == id.ALMAC
}

// OrchState is the lifecycle of the active command.
type OrchState int

const (
	OrchIdle OrchState = iota
	OrchInProgress
	OrchFinished
	OrchCancelled
)

func (s OrchState) String() string {
	switch s {
	case OrchIdle:
		return "idle"
	case OrchInProgress:
		return "in-progress"
	case OrchFinished:
		return "finished"
	case OrchCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("orch(%d)", int(s))
	}
}

// State is the protocol state. Each sub-protocol owns a disjoint range
// closed by its *Complete sentinel.
type State int

// Agent configuration.
const (
	StateConfigNone State = iota + 1
	StateAutoconfigRspPending
	StateWscM2Pending
	StateTopologyNotify
	StateAutoconfigRenewPending
	StateConfigComplete
)

// Agent provisioning.
const (
	StateProvNone State = iota + 100
	StateChirpPending
	StateDPPPending
	StateProvComplete
)

// Agent capability reporting.
const (
	StateAPCapReport State = iota + 200
	StateClientCapReport
	StateCapComplete
)

// Controller.
const (
	StateCtrlNone State = iota + 300
	StateCtrlWscM1Pending
	StateCtrlCapQueryPending
	StateCtrlComplete
)

var stateNames = map[State]string{
	StateConfigNone:             "config-none",
	StateAutoconfigRspPending:   "autoconfig-rsp-pending",
	StateWscM2Pending:           "wsc-m2-pending",
	StateTopologyNotify:         "topology-notify",
	StateAutoconfigRenewPending: "autoconfig-renew-pending",
	StateConfigComplete:         "config-complete",
	StateProvNone:               "prov-none",
	StateChirpPending:           "chirp-pending",
	StateDPPPending:             "dpp-pending",
	StateProvComplete:           "prov-complete",
	StateAPCapReport:            "ap-cap-report",
	StateClientCapReport:        "client-cap-report",
	StateCapComplete:            "cap-complete",
	StateCtrlNone:               "ctrl-none",
	StateCtrlWscM1Pending:       "ctrl-wsc-m1-pending",
	StateCtrlCapQueryPending:    "ctrl-cap-query-pending",
	StateCtrlComplete:           "ctrl-complete",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Range is the half-open span of states a phase drives, from its first
// state up to its complete sentinel.
type Range struct {
	First    State
	Complete State
}

// Open reports whether s lies in the range before the sentinel.
func (r Range) Open(s State) bool {
	return s >= r.First && s < r.Complete
}

// Contains reports whether s lies in the range, sentinel included.
func (r Range) Contains(s State) bool {
	return s >= r.First && s <= r.Complete
}

var (
	ConfigRange     = Range{StateConfigNone, StateConfigComplete}
	ProvRange       = Range{StateProvNone, StateProvComplete}
	CapRange        = Range{StateAPCapReport, StateCapComplete}
	ControllerRange = Range{StateCtrlNone, StateCtrlComplete}
)

// initialState is the state a role starts in before any command.
func initialState(r Role) State {
	if r == RoleController {
		return StateCtrlNone
	}
	return StateConfigNone
}
