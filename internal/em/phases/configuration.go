// SPDX-License-Identifier:Apache-2.0

package phases

import (
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/em"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// WSC attribute types used in M1.
const (
	wscAttrMACAddress    uint16 = 0x1020
	wscAttrMessageType   uint16 = 0x1022
	wscAttrEnrolleeNonce uint16 = 0x101a
	wscAttrRFBands       uint16 = 0x103c

	wscMessageM1 uint8 = 0x04
)

// Configuration is the agent side of AP autoconfiguration: search for
// the controller, exchange WSC, and topology notifications.
type Configuration struct {
	s      em.Session
	logger log.Logger

	// controller is learned from the autoconfiguration response.
	controller net.HardwareAddr
}

// NewConfiguration returns the configuration phase of s.
func NewConfiguration(s em.Session) em.Handler {
	return &Configuration{
		s:      s,
		logger: log.With(s.Logger(), "phase", "configuration"),
	}
}

// ProcessState sends whatever the current state is waiting on. Pending
// states resend on every timeout until the peer answers.
func (c *Configuration) ProcessState() {
	switch c.s.State() {
	case em.StateConfigNone, em.StateAutoconfigRenewPending, em.StateAutoconfigRspPending:
		if err := c.sendSearch(); err != nil {
			return
		}
		c.s.SetState(em.StateAutoconfigRspPending)

	case em.StateWscM2Pending:
		c.sendM1() //nolint:errcheck

	case em.StateTopologyNotify:
		if err := send(c.s, "topologyNotify", nil, wire.MsgTopologyNotification, c.s.NextMessageID(), alMACTLV(alMAC(c.s))); err != nil {
			return
		}
		c.s.SetState(em.StateConfigComplete)
		c.s.SetOrchState(em.OrchFinished)
	}
}

// ProcessMessage advances the exchange on the controller's replies.
// Replies that do not match the current state are ignored.
func (c *Configuration) ProcessMessage(msg *wire.Message) {
	state := c.s.State()
	switch msg.CMDU.Type {
	case wire.MsgAutoconfResp:
		if state != em.StateAutoconfigRspPending {
			return
		}
		c.controller = cloneMAC(msg.Source)
		level.Info(c.logger).Log("op", "autoconfigResponse", "controller", c.controller, "msg", "controller found")
		if err := c.sendM1(); err != nil {
			return
		}
		c.s.SetState(em.StateWscM2Pending)

	case wire.MsgAutoconfWSC:
		if state != em.StateWscM2Pending {
			return
		}
		tlvs, err := wire.ParseTLVs(msg.TLVs)
		if err != nil {
			level.Warn(c.logger).Log("op", "autoconfigWSC", "error", err, "msg", "dropping malformed WSC message")
			return
		}
		if _, ok := wire.Find(tlvs, wire.TLVWSC); !ok {
			level.Warn(c.logger).Log("op", "autoconfigWSC", "msg", "WSC message without M2, ignoring")
			return
		}
		c.s.SetState(em.StateConfigComplete)
		c.s.SetOrchState(em.OrchFinished)

	case wire.MsgAutoconfRenew:
		level.Info(c.logger).Log("op", "autoconfigRenew", "src", msg.Source, "msg", "controller requested renew")
		if !claim(c.s, c.logger, configCommands, command.CfgRenew) {
			return
		}
		c.s.SetState(em.StateAutoconfigRenewPending)
	}
}

func (c *Configuration) sendSearch() error {
	band := uint8(0)
	if cmd := c.s.Command(); cmd != nil {
		band = uint8(cmd.FreqBand)
	}
	return send(c.s, "autoconfigSearch", nil, wire.MsgAutoconfSearch, c.s.NextMessageID(),
		alMACTLV(alMAC(c.s)),
		wire.TLV{Type: wire.TLVSearchedRole, Value: []byte{searchedRoleRegistrar}},
		wire.TLV{Type: wire.TLVAutoconfigFreqBand, Value: []byte{band}},
		wire.TLV{Type: wire.TLVSupportedService, Value: []byte{1, serviceAgent}},
		wire.TLV{Type: wire.TLVSearchedService, Value: []byte{1, serviceController}},
		profileTLV(c.s.Identity().Profile),
	)
}

// sendM1 sends the radio's basic capabilities and a WSC M1 to the
// controller.
func (c *Configuration) sendM1() error {
	b := c.s.Builder()
	buf := make([]byte, 512)
	n := b.APRadioBasicCapability(buf)
	if n == 0 {
		level.Error(c.logger).Log("op", "wscM1", "msg", "no radio basic capability to send")
		return errNoCapability
	}

	band := uint8(0)
	if cmd := c.s.Command(); cmd != nil {
		band = uint8(cmd.FreqBand)
	}
	nonces := c.s.Nonces()
	var m1 []byte
	m1 = wscAttr(m1, wscAttrMessageType, []byte{wscMessageM1})
	m1 = wscAttr(m1, wscAttrEnrolleeNonce, nonces.Enrollee[:])
	m1 = wscAttr(m1, wscAttrMACAddress, alMAC(c.s))
	m1 = wscAttr(m1, wscAttrRFBands, []byte{1 << band})

	return send(c.s, "wscM1", peer(c.s, c.controller), wire.MsgAutoconfWSC, c.s.NextMessageID(),
		wire.TLV{Type: wire.TLVAPRadioBasicCapabilities, Value: buf[:n]},
		wire.TLV{Type: wire.TLVWSC, Value: m1},
		profileTLV(c.s.Identity().Profile),
	)
}
