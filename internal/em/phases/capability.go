// SPDX-License-Identifier:Apache-2.0

package phases

import (
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/em"
	"github.com/onewifi-go/easymesh/internal/tlv"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// reportBufLen bounds a single capability TLV value.
const reportBufLen = 1500

// clientCapUnspecified is the report result code for a failure with
// no further detail.
const clientCapUnspecified uint8 = 0x01

// Capability answers AP and client capability queries.
type Capability struct {
	s      em.Session
	logger log.Logger

	// Set by the last query and echoed in the report.
	queryID   uint16
	requester net.HardwareAddr
	client    []byte
}

// NewCapability returns the capability phase of s.
func NewCapability(s em.Session) em.Handler {
	return &Capability{
		s:      s,
		logger: log.With(s.Logger(), "phase", "capability"),
	}
}

// ProcessMessage records a query and moves to the matching report
// state; the report goes out on the next timeout. A query arriving
// while no command is orchestrated starts one of its own.
func (c *Capability) ProcessMessage(msg *wire.Message) {
	switch msg.CMDU.Type {
	case wire.MsgAPCapQuery:
		if !claim(c.s, c.logger, capCommands, command.APCapQuery) {
			return
		}
		c.queryID = msg.CMDU.ID
		c.requester = cloneMAC(msg.Source)
		c.client = nil
		c.s.SetState(em.StateAPCapReport)

	case wire.MsgClientCapQuery:
		tlvs, err := wire.ParseTLVs(msg.TLVs)
		if err != nil {
			level.Warn(c.logger).Log("op", "clientCapQuery", "error", err, "msg", "dropping malformed query")
			return
		}
		info, ok := wire.Find(tlvs, wire.TLVClientInfo)
		if !ok || len(info.Value) != 12 {
			level.Warn(c.logger).Log("op", "clientCapQuery", "msg", "query without a valid client info TLV")
			return
		}
		if !claim(c.s, c.logger, capCommands, command.ClientCapQuery) {
			return
		}
		c.queryID = msg.CMDU.ID
		c.requester = cloneMAC(msg.Source)
		c.client = append([]byte(nil), info.Value...)
		c.s.SetState(em.StateClientCapReport)
	}
}

// ProcessState sends the pending report and finishes the command.
func (c *Capability) ProcessState() {
	var err error
	switch c.s.State() {
	case em.StateAPCapReport:
		err = c.sendAPReport()
	case em.StateClientCapReport:
		err = c.sendClientReport()
	default:
		return
	}
	if err != nil {
		return
	}
	c.queryID, c.requester, c.client = 0, nil, nil
	c.s.SetState(em.StateCapComplete)
	c.s.SetOrchState(em.OrchFinished)
}

func (c *Capability) mid() uint16 {
	if c.queryID != 0 {
		return c.queryID
	}
	return c.s.NextMessageID()
}

func (c *Capability) sendAPReport() error {
	tlvs := tlv.Collect(c.s.Builder().Capabilities(), reportBufLen)
	level.Info(c.logger).Log("op", "apCapReport", "tlvs", len(tlvs), "msg", "sending AP capability report")
	return send(c.s, "apCapReport", peer(c.s, c.requester), wire.MsgAPCapReport, c.mid(), tlvs...)
}

func (c *Capability) sendClientReport() error {
	client := c.client
	if client == nil {
		cmd := c.s.Command()
		if cmd == nil || cmd.Client == nil {
			level.Error(c.logger).Log("op", "clientCapReport", "msg", "no client to report on")
			return errNoCapability
		}
		client = append(append([]byte(nil), cmd.Client.BSSID...), cmd.Client.STA...)
	}

	// No association frame is cached for the client, so the report
	// carries no frame body.
	return send(c.s, "clientCapReport", peer(c.s, c.requester), wire.MsgClientCapReport, c.mid(),
		wire.TLV{Type: wire.TLVClientInfo, Value: client},
		wire.TLV{Type: wire.TLVClientCapabilityReport, Value: []byte{clientCapUnspecified}},
	)
}
