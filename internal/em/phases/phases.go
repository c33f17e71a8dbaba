// SPDX-License-Identifier:Apache-2.0

// Package phases holds the default agent sub-protocols run by an
// engine: configuration, capability reporting and DPP provisioning.
package phases

import (
	"encoding/binary"
	"errors"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/em"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// Commands whose orchestration each phase drives.
var (
	configCommands = []command.Type{command.DevInit, command.StaList, command.CfgRenew}
	capCommands    = []command.Type{command.APCapQuery, command.ClientCapQuery}
	provCommands   = []command.Type{command.StartDPP}
)

// Registrations returns the phases an agent engine runs.
func Registrations() []em.Registration {
	return []em.Registration{
		{
			Name:     "configuration",
			Role:     em.RoleAgent,
			Range:    em.ConfigRange,
			Commands: configCommands,
			Messages: []wire.MessageType{
				wire.MsgAutoconfSearch,
				wire.MsgAutoconfResp,
				wire.MsgAutoconfWSC,
				wire.MsgAutoconfRenew,
			},
			New: NewConfiguration,
		},
		{
			Name:     "capability",
			Role:     em.RoleAgent,
			Range:    em.CapRange,
			Commands: capCommands,
			Messages: []wire.MessageType{wire.MsgAPCapQuery, wire.MsgClientCapQuery},
			New:      NewCapability,
		},
		{
			Name:     "provisioning",
			Role:     em.RoleAgent,
			Range:    em.ProvRange,
			Commands: provCommands,
			Messages: []wire.MessageType{
				wire.MsgDPPCCEIndication,
				wire.MsgProxiedEncapDPP,
				wire.MsgDirectEncapDPP,
			},
			New: NewProvisioning,
		},
	}
}

var errNoCapability = errors.New("capability not available")

// Service types carried in the supported/searched service TLVs.
const (
	serviceController uint8 = 0x00
	serviceAgent      uint8 = 0x01
)

// searchedRoleRegistrar is the only role an enrollee searches for.
const searchedRoleRegistrar uint8 = 0x00

// owns reports whether the command being orchestrated is one of cmds.
// Only then may a phase move the protocol state.
func owns(s em.Session, cmds []command.Type) bool {
	if s.OrchState() != em.OrchInProgress {
		return false
	}
	cmd := s.Command()
	if cmd == nil {
		return false
	}
	for _, t := range cmds {
		if cmd.Type == t {
			return true
		}
	}
	return false
}

// claim makes a peer-initiated exchange the active command. A phase
// that already owns the active command keeps it; when nothing is
// orchestrated a command of type t is submitted. It returns false if
// another phase's command is in progress and the request must be
// dropped.
func claim(s em.Session, l log.Logger, cmds []command.Type, t command.Type) bool {
	if owns(s, cmds) {
		return true
	}
	if s.OrchState() == em.OrchInProgress {
		level.Warn(l).Log("op", "claim", "want", t, "active", s.Command(), "msg", "another command is in progress, dropping request")
		return false
	}
	s.SubmitCommand(followUp(s, t))
	return true
}

// followUp returns a command of type t on the interface and radio of
// the last command, or on the engine's AL if there was none.
func followUp(s em.Session, t command.Type) *command.Command {
	prev := s.Command()
	if prev == nil {
		return command.New(t, command.Interface{MAC: s.Identity().ALMAC.HardwareAddr()})
	}
	cmd := command.New(t, prev.AgentAL)
	cmd.Peer = prev.Peer
	cmd.FreqBand = prev.FreqBand
	cmd.OpClass = prev.OpClass
	cmd.Channel = prev.Channel
	return cmd
}

// alMAC is the source address of frames sent for the active command:
// the command's agent AL interface, or the engine's own AL.
func alMAC(s em.Session) net.HardwareAddr {
	if cmd := s.Command(); cmd != nil && len(cmd.AgentAL.MAC) == 6 {
		return cmd.AgentAL.MAC
	}
	return s.Identity().ALMAC.HardwareAddr()
}

// send builds a CMDU and transmits it. A nil dst multicasts the frame
// to the 1905 group with the relay bit set.
func send(s em.Session, op string, dst net.HardwareAddr, typ wire.MessageType, mid uint16, tlvs ...wire.TLV) error {
	cmdu := wire.CMDU{Type: typ, ID: mid, Flags: wire.FlagLastFragment}
	multicast := dst == nil
	if multicast {
		dst = wire.MulticastAddr
		cmdu.Flags |= wire.FlagRelay
	}

	frame, err := wire.Build(dst, alMAC(s), cmdu, tlvs...)
	if err != nil {
		level.Error(s.Logger()).Log("op", op, "type", typ, "error", err, "msg", "failed to build frame")
		return err
	}
	if _, err := s.Send(frame, multicast); err != nil {
		return err
	}
	level.Debug(s.Logger()).Log("op", op, "type", typ, "mid", mid, "dst", dst, "msg", "frame sent")
	return nil
}

// peer is where replies for the active command go, or nil if unknown.
func peer(s em.Session, learned net.HardwareAddr) net.HardwareAddr {
	if learned != nil {
		return learned
	}
	if cmd := s.Command(); cmd != nil && len(cmd.Peer) == 6 {
		return cmd.Peer
	}
	return nil
}

func alMACTLV(mac net.HardwareAddr) wire.TLV {
	return wire.TLV{Type: wire.TLVALMACAddress, Value: append([]byte(nil), mac...)}
}

func profileTLV(p em.Profile) wire.TLV {
	return wire.TLV{Type: wire.TLVMultiAPProfile, Value: []byte{uint8(p)}}
}

// wscAttr encodes one WSC attribute: type(2) length(2) value.
func wscAttr(b []byte, typ uint16, value []byte) []byte {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], typ)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(value)))
	b = append(b, hdr[:]...)
	return append(b, value...)
}

func cloneMAC(mac net.HardwareAddr) net.HardwareAddr {
	return append(net.HardwareAddr(nil), mac...)
}
