// SPDX-License-Identifier:Apache-2.0

// Package command holds the command objects submitted to a protocol
// engine for orchestration.
package command

import (
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/onewifi-go/easymesh/internal/dm"
)

// Type is the kind of a command.
type Type int

const (
	None Type = iota
	SetSSID
	DevInit
	StaList
	CfgRenew
	StartDPP
	APCapQuery
	ClientCapQuery
)

var typeNames = map[Type]string{
	None:           "none",
	SetSSID:        "set-ssid",
	DevInit:        "dev-init",
	StaList:        "sta-list",
	CfgRenew:       "cfg-renew",
	StartDPP:       "start-dpp",
	APCapQuery:     "ap-cap-query",
	ClientCapQuery: "client-cap-query",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseType returns the command type named s.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return None, fmt.Errorf("unknown command type %q", s)
}

// Interface names a local interface and its hardware address.
type Interface struct {
	Name string
	MAC  net.HardwareAddr
}

// ClientQuery selects the associated station a client capability
// query is about.
type ClientQuery struct {
	BSSID net.HardwareAddr
	STA   net.HardwareAddr
}

// Command is one orchestrated request. The engine references it for
// the duration of one orchestration cycle; Config is what gets
// committed to the data model when the cycle finishes.
type Command struct {
	ID       uuid.UUID
	Type     Type
	AgentAL  Interface
	Peer     net.HardwareAddr
	FreqBand dm.FreqBand
	OpClass  uint8
	Channel  uint8
	NumBSS   int
	Client   *ClientQuery
	Config   *dm.EasyMesh
}

// New returns a command of type t with a fresh ID and an empty
// configuration.
func New(t Type, agentAL Interface) *Command {
	return &Command{
		ID:      uuid.New(),
		Type:    t,
		AgentAL: agentAL,
		Config:  dm.New(),
	}
}

func (c *Command) String() string {
	return fmt.Sprintf("%s[%s]", c.Type, c.ID)
}
