// SPDX-License-Identifier:Apache-2.0

package phases

import (
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/em"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// chirpEnrolleeMACPresent flags a DPP chirp value carrying the
// enrollee MAC.
const chirpEnrolleeMACPresent uint8 = 1 << 7

// Provisioning onboards the agent with DPP: it chirps until the
// controller starts an exchange, then waits for the configuration.
type Provisioning struct {
	s      em.Session
	logger log.Logger

	configurator net.HardwareAddr
}

// NewProvisioning returns the provisioning phase of s.
func NewProvisioning(s em.Session) em.Handler {
	return &Provisioning{
		s:      s,
		logger: log.With(s.Logger(), "phase", "provisioning"),
	}
}

func (p *Provisioning) ProcessState() {
	switch p.s.State() {
	case em.StateProvNone, em.StateChirpPending:
		if err := p.sendChirp(); err != nil {
			return
		}
		p.s.SetState(em.StateChirpPending)
	}
}

func (p *Provisioning) ProcessMessage(msg *wire.Message) {
	state := p.s.State()
	switch msg.CMDU.Type {
	case wire.MsgDPPCCEIndication:
		level.Debug(p.logger).Log("op", "cceIndication", "src", msg.Source, "msg", "configurator connectivity advertised")

	case wire.MsgProxiedEncapDPP:
		if state != em.StateChirpPending {
			return
		}
		if !hasTLV(p.logger, msg, wire.TLVDPPMessage) {
			return
		}
		p.configurator = cloneMAC(msg.Source)
		level.Info(p.logger).Log("op", "proxiedEncapDPP", "configurator", p.configurator, "msg", "DPP exchange started")
		p.s.SetState(em.StateDPPPending)

	case wire.MsgDirectEncapDPP:
		if state != em.StateDPPPending {
			return
		}
		if !hasTLV(p.logger, msg, wire.TLVDPPMessage) {
			return
		}
		level.Info(p.logger).Log("op", "directEncapDPP", "src", msg.Source, "msg", "DPP configuration received")
		p.s.SetState(em.StateProvComplete)
		p.s.SetOrchState(em.OrchFinished)
	}
}

func (p *Provisioning) sendChirp() error {
	mac := alMAC(p.s)
	// No bootstrapping key hash is known here: the hash valid bit stays
	// clear and the hash length is zero.
	value := append([]byte{chirpEnrolleeMACPresent}, mac...)
	value = append(value, 0)
	return send(p.s, "chirp", nil, wire.MsgChirpNotification, p.s.NextMessageID(),
		wire.TLV{Type: wire.TLVDPPChirpValue, Value: value},
	)
}

func hasTLV(l log.Logger, msg *wire.Message, typ uint8) bool {
	tlvs, err := wire.ParseTLVs(msg.TLVs)
	if err != nil {
		level.Warn(l).Log("op", "parseTLVs", "type", msg.CMDU.Type, "error", err, "msg", "dropping malformed message")
		return false
	}
	if _, ok := wire.Find(tlvs, typ); !ok {
		level.Warn(l).Log("op", "parseTLVs", "type", msg.CMDU.Type, "tlv", typ, "msg", "required TLV missing")
		return false
	}
	return true
}
