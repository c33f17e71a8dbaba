// SPDX-License-Identifier:Apache-2.0

package wire

import "fmt"

// MessageType selects the message class of a CMDU.
type MessageType uint16

const (
	MsgTopologyNotification MessageType = 0x0001
	MsgAutoconfSearch       MessageType = 0x0007
	MsgAutoconfResp         MessageType = 0x0008
	MsgAutoconfWSC          MessageType = 0x0009
	MsgAutoconfRenew        MessageType = 0x000a

	MsgAPCapQuery        MessageType = 0x8001
	MsgAPCapReport       MessageType = 0x8002
	MsgClientCapQuery    MessageType = 0x8009
	MsgClientCapReport   MessageType = 0x800a
	MsgDPPCCEIndication  MessageType = 0x801d
	MsgProxiedEncapDPP   MessageType = 0x8029
	MsgDirectEncapDPP    MessageType = 0x802a
	MsgChirpNotification MessageType = 0x802f
)

var messageNames = map[MessageType]string{
	MsgTopologyNotification: "topology-notification",
	MsgAutoconfSearch:       "autoconfig-search",
	MsgAutoconfResp:         "autoconfig-response",
	MsgAutoconfWSC:          "autoconfig-wsc",
	MsgAutoconfRenew:        "autoconfig-renew",
	MsgAPCapQuery:           "ap-capability-query",
	MsgAPCapReport:          "ap-capability-report",
	MsgClientCapQuery:       "client-capability-query",
	MsgClientCapReport:      "client-capability-report",
	MsgDPPCCEIndication:     "dpp-cce-indication",
	MsgProxiedEncapDPP:      "proxied-encap-dpp",
	MsgDirectEncapDPP:       "direct-encap-dpp",
	MsgChirpNotification:    "chirp-notification",
}

func (t MessageType) String() string {
	if n, ok := messageNames[t]; ok {
		return n
	}
	return fmt.Sprintf("unknown(0x%04x)", uint16(t))
}
