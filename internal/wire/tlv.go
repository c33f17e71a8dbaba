// SPDX-License-Identifier:Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/onewifi-go/easymesh/internal/safeconvert"
)

// TLV type codes used by this agent.
const (
	TLVEndOfMessage                uint8 = 0x00
	TLVALMACAddress                uint8 = 0x01
	TLVSearchedRole                uint8 = 0x0d
	TLVAutoconfigFreqBand          uint8 = 0x0e
	TLVSupportedRole               uint8 = 0x0f
	TLVSupportedFreqBand           uint8 = 0x10
	TLVWSC                         uint8 = 0x11
	TLVSupportedService            uint8 = 0x80
	TLVSearchedService             uint8 = 0x81
	TLVAPRadioIdentifier           uint8 = 0x82
	TLVAPRadioBasicCapabilities    uint8 = 0x85
	TLVHTCapabilities              uint8 = 0x86
	TLVVHTCapabilities             uint8 = 0x87
	TLVHECapabilities              uint8 = 0x88
	TLVClientInfo                  uint8 = 0x90
	TLVClientCapabilityReport      uint8 = 0x91
	TLVAPCapability                uint8 = 0xa1
	TLVChannelScanCapabilities     uint8 = 0xa5
	TLVWiFi6Capabilities           uint8 = 0xaa
	TLVCACCapabilities             uint8 = 0xb2
	TLVMultiAPProfile              uint8 = 0xb3
	TLVProfile2APCapability        uint8 = 0xb4
	TLVMetricCollectionInterval    uint8 = 0xb5
	TLVDeviceInventory             uint8 = 0xba
	TLVAPRadioAdvancedCapabilities uint8 = 0xbe
	TLVDPPChirpValue               uint8 = 0xd3
	TLVDPPMessage                  uint8 = 0xd1
)

// TLV is one type-length-value element.
type TLV struct {
	Type  uint8
	Value []byte
}

// Append frames value as a TLV of type typ and appends it to b.
func Append(b []byte, typ uint8, value []byte) ([]byte, error) {
	l, err := safeconvert.IntToUInt16(len(value))
	if err != nil {
		return nil, fmt.Errorf("tlv 0x%02x: %w", typ, err)
	}
	b = append(b, typ, 0, 0)
	binary.BigEndian.PutUint16(b[len(b)-2:], l)
	return append(b, value...), nil
}

// ParseTLVs splits a TLV stream, stopping at the end-of-message TLV.
func ParseTLVs(b []byte) ([]TLV, error) {
	var ret []TLV
	for len(b) > 0 {
		if len(b) < TLVHeaderLen {
			return nil, fmt.Errorf("truncated TLV header, %d bytes left", len(b))
		}
		typ := b[0]
		l := int(binary.BigEndian.Uint16(b[1:3]))
		b = b[TLVHeaderLen:]
		if l > len(b) {
			return nil, fmt.Errorf("TLV 0x%02x claims %d bytes, %d left", typ, l, len(b))
		}
		if typ == TLVEndOfMessage {
			return ret, nil
		}
		ret = append(ret, TLV{Type: typ, Value: b[:l]})
		b = b[l:]
	}
	return ret, nil
}

// Find returns the first TLV of type typ.
func Find(tlvs []TLV, typ uint8) (TLV, bool) {
	for _, t := range tlvs {
		if t.Type == typ {
			return t, true
		}
	}
	return TLV{}, false
}
