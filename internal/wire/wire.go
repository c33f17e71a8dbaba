// SPDX-License-Identifier:Apache-2.0

// Package wire encodes and decodes IEEE 1905.1 / Multi-AP frames: the
// Ethernet header, the CMDU header and the TLV stream that follows it.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/mdlayher/ethernet"
)

// EtherType is the IEEE 1905.1 EtherType carried by every Multi-AP frame.
const EtherType ethernet.EtherType = 0x893a

// Header sizes, in bytes.
const (
	RawHeaderLen  = 14
	CMDUHeaderLen = 8
	TLVHeaderLen  = 3
)

// MulticastAddr is the IEEE 1905.1 multicast group.
var MulticastAddr = net.HardwareAddr{0x01, 0x80, 0xc2, 0x00, 0x00, 0x13}

var (
	errShortFrame = errors.New("frame too short for raw and CMDU headers")
	errEtherType  = errors.New("not a 1905 frame")
)

// CMDU flag bits.
const (
	FlagLastFragment uint8 = 0x80
	FlagRelay        uint8 = 0x40
)

// CMDU is the command-data-unit header following the Ethernet header.
type CMDU struct {
	Version    uint8
	Reserved   uint8
	Type       MessageType
	ID         uint16
	FragmentID uint8
	Flags      uint8
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (c *CMDU) MarshalBinary() ([]byte, error) {
	var b bytes.Buffer
	if err := binary.Write(&b, binary.BigEndian, c); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (c *CMDU) UnmarshalBinary(b []byte) error {
	if len(b) < CMDUHeaderLen {
		return errShortFrame
	}
	return binary.Read(bytes.NewReader(b[:CMDUHeaderLen]), binary.BigEndian, c)
}

// Message is a parsed inbound frame.
type Message struct {
	Destination net.HardwareAddr
	Source      net.HardwareAddr
	CMDU        CMDU
	// TLVs is the raw TLV stream following the CMDU header.
	TLVs []byte
	// Raw is the whole frame as received.
	Raw []byte
}

// Parse decodes the raw and CMDU headers of b. Payload TLVs are left
// encoded in Message.TLVs.
func Parse(b []byte) (*Message, error) {
	if len(b) < RawHeaderLen+CMDUHeaderLen {
		return nil, errShortFrame
	}

	var f ethernet.Frame
	if err := f.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("parsing ethernet header: %w", err)
	}
	if f.EtherType != EtherType {
		return nil, errEtherType
	}

	m := &Message{
		Destination: f.Destination,
		Source:      f.Source,
		Raw:         b,
	}
	if err := m.CMDU.UnmarshalBinary(f.Payload); err != nil {
		return nil, err
	}
	m.TLVs = f.Payload[CMDUHeaderLen:]
	return m, nil
}

// Build assembles a complete frame: Ethernet header, CMDU header, the
// given TLVs and a terminating end-of-message TLV.
func Build(dst, src net.HardwareAddr, cmdu CMDU, tlvs ...TLV) ([]byte, error) {
	hdr, err := cmdu.MarshalBinary()
	if err != nil {
		return nil, err
	}

	payload := hdr
	for _, t := range tlvs {
		if payload, err = Append(payload, t.Type, t.Value); err != nil {
			return nil, err
		}
	}
	if payload, err = Append(payload, TLVEndOfMessage, nil); err != nil {
		return nil, err
	}

	f := ethernet.Frame{
		Destination: dst,
		Source:      src,
		EtherType:   EtherType,
		Payload:     payload,
	}
	b, err := f.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ethernet frame: %w", err)
	}
	return b, nil
}

// DestinationOf returns the destination MAC embedded in a raw frame.
func DestinationOf(frame []byte) (net.HardwareAddr, error) {
	if len(frame) < RawHeaderLen {
		return nil, errShortFrame
	}
	return net.HardwareAddr(frame[0:6]), nil
}
