// SPDX-License-Identifier:Apache-2.0

// Package tlv builds the capability TLVs an agent reports, reading the
// records of one radio from the data model.
package tlv

import (
	"bytes"
	"encoding/binary"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/dm"
	"github.com/onewifi-go/easymesh/internal/safeconvert"
	"github.com/onewifi-go/easymesh/internal/wire"
)

// Source is the part of the data model the builder reads.
type Source interface {
	Radio(id dm.MAC) *dm.RadioInfo
	RadioCap(id dm.MAC) *dm.RadioCap
}

// Encoder writes one TLV value into buf and returns its length, or 0
// if the value could not be produced. A zero return means nothing was
// written and the TLV should be omitted.
type Encoder func(buf []byte) int

// Encoding pairs an encoder with the TLV type it produces.
type Encoding struct {
	Type   uint8
	Encode Encoder
}

// Builder encodes the capabilities of one radio.
type Builder struct {
	logger log.Logger
	dm     Source
	ruid   dm.MAC

	// Used by the basic capability TLV when the data model lists no
	// operating classes for the radio.
	opClass uint8
	channel uint8
}

// NewBuilder returns a builder for radio ruid.
func NewBuilder(l log.Logger, src Source, ruid dm.MAC) *Builder {
	return &Builder{
		logger: log.With(l, "ruid", ruid),
		dm:     src,
		ruid:   ruid,
	}
}

// WithOpClass returns a copy of b falling back to a single operating
// class and channel for the basic capability TLV. Operating class 0
// leaves the TLV out.
func (b *Builder) WithOpClass(opClass, channel uint8) *Builder {
	ret := *b
	ret.opClass = opClass
	ret.channel = channel
	return &ret
}

// Capabilities returns the encoders of an AP capability report, in
// report order.
func (b *Builder) Capabilities() []Encoding {
	return []Encoding{
		{wire.TLVAPCapability, b.APCapability},
		{wire.TLVAPRadioBasicCapabilities, b.APRadioBasicCapability},
		{wire.TLVHTCapabilities, b.HTCapability},
		{wire.TLVVHTCapabilities, b.VHTCapability},
		{wire.TLVHECapabilities, b.HECapability},
		{wire.TLVWiFi6Capabilities, b.WiFi6Capability},
		{wire.TLVChannelScanCapabilities, b.ChannelScanCapability},
		{wire.TLVCACCapabilities, b.CACCapability},
		{wire.TLVProfile2APCapability, b.Profile2APCapability},
		{wire.TLVMetricCollectionInterval, b.MetricCollectionInterval},
		{wire.TLVDeviceInventory, b.DeviceInventory},
		{wire.TLVAPRadioAdvancedCapabilities, b.RadioAdvancedCapability},
	}
}

// Collect runs every encoding against a scratch buffer of bufLen bytes
// and returns the TLVs that were produced.
func Collect(encs []Encoding, bufLen int) []wire.TLV {
	var ret []wire.TLV
	buf := make([]byte, bufLen)
	for _, e := range encs {
		n := e.Encode(buf)
		if n == 0 {
			continue
		}
		ret = append(ret, wire.TLV{Type: e.Type, Value: append([]byte(nil), buf[:n]...)})
	}
	return ret
}

func sizeOf(v interface{}) int {
	return binary.Size(v)
}

// put writes v into buf, or nothing if buf is too short.
func (b *Builder) put(op string, buf []byte, v interface{}) int {
	var w bytes.Buffer
	if err := binary.Write(&w, binary.BigEndian, v); err != nil {
		level.Error(b.logger).Log("op", op, "error", err, "msg", "failed to encode TLV")
		return 0
	}
	if w.Len() > len(buf) {
		level.Warn(b.logger).Log("op", op, "need", w.Len(), "have", len(buf), "msg", "buffer too small for TLV")
		return 0
	}
	return copy(buf, w.Bytes())
}

func (b *Builder) noData(op string) int {
	level.Debug(b.logger).Log("op", op, "msg", "no data found")
	return 0
}

func (b *Builder) radioCap(op string) *dm.RadioCap {
	c := b.dm.RadioCap(b.ruid)
	if c == nil {
		b.noData(op)
	}
	return c
}

// APRadioBasicCapability encodes the radio's BSS count and the
// operating classes it supports.
func (b *Builder) APRadioBasicCapability(buf []byte) int {
	const op = "apRadioBasicCapability"

	numBSS := 1
	var classes []dm.OpClass
	if info := b.dm.Radio(b.ruid); info != nil {
		if info.NumBSS > 0 {
			numBSS = info.NumBSS
		}
		classes = info.OpClasses
	}
	if len(classes) == 0 {
		if b.opClass == 0 {
			return b.noData(op)
		}
		classes = []dm.OpClass{{Class: b.opClass, Channels: []uint8{b.channel}}}
	}

	hdr := radioBasicCapHeader{RUID: b.ruid}
	var err error
	if hdr.NumBSS, err = safeconvert.IntToUInt8(numBSS); err != nil {
		level.Error(b.logger).Log("op", op, "error", err, "msg", "invalid BSS count")
		return 0
	}
	if hdr.NumOpClasses, err = safeconvert.IntToUInt8(len(classes)); err != nil {
		level.Error(b.logger).Log("op", op, "error", err, "msg", "too many operating classes")
		return 0
	}

	var w bytes.Buffer
	binary.Write(&w, binary.BigEndian, hdr) //nolint:errcheck
	for _, c := range classes {
		n, err := safeconvert.IntToUInt8(len(c.Channels))
		if err != nil {
			level.Error(b.logger).Log("op", op, "opClass", c.Class, "error", err, "msg", "too many channels")
			return 0
		}
		binary.Write(&w, binary.BigEndian, opClassHeader{OpClass: c.Class, MaxTxPower: c.MaxTxPower, NumChannels: n}) //nolint:errcheck
		w.Write(c.Channels)
	}
	return b.put(op, buf, w.Bytes())
}

// APCapability encodes the unassociated STA metrics and RCPI steering
// policy of the radio.
func (b *Builder) APCapability(buf []byte) int {
	const op = "apCapability"
	info := b.dm.Radio(b.ruid)
	if info == nil {
		return b.noData(op)
	}

	var v apCapability
	if info.UnassocSTALinkMetricsOpClass {
		v.Flags |= apCapOpClassUnassocMetrics
	}
	if info.UnassocSTALinkMetricsNonOpClass {
		v.Flags |= apCapNonOpClassUnassocMetrics
	}
	if info.RCPISteering {
		v.Flags |= apCapRCPISteering
	}
	return b.put(op, buf, v)
}

func (b *Builder) HTCapability(buf []byte) int {
	const op = "htCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.HT == nil {
		return b.noData(op)
	}

	v := htCapability{RUID: b.ruid}
	v.Flags = streams(c.HT.TxStreams, 4)<<6 | streams(c.HT.RxStreams, 4)<<4 |
		bit(c.HT.SGI20, 3) | bit(c.HT.SGI40, 2) | bit(c.HT.HT40, 1)
	return b.put(op, buf, v)
}

func (b *Builder) VHTCapability(buf []byte) int {
	const op = "vhtCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.VHT == nil {
		return b.noData(op)
	}

	v := vhtCapability{
		RUID:  b.ruid,
		TxMCS: c.VHT.TxMCS,
		RxMCS: c.VHT.RxMCS,
	}
	v.Flags1 = streams(c.VHT.TxStreams, 8)<<5 | streams(c.VHT.RxStreams, 8)<<2 |
		bit(c.VHT.SGI80, 1) | bit(c.VHT.SGI160, 0)
	v.Flags2 = bit(c.VHT.VHT8080, 7) | bit(c.VHT.VHT160, 6) |
		bit(c.VHT.SUBeamformer, 5) | bit(c.VHT.MUBeamformer, 4)
	return b.put(op, buf, v)
}

func (b *Builder) HECapability(buf []byte) int {
	const op = "heCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.HE == nil {
		return b.noData(op)
	}

	v := heCapability{RUID: b.ruid, MCSLen: heMCSLen}
	copy(v.MCS[:], c.HE.MCS)
	v.Flags1 = streams(c.HE.TxStreams, 8)<<5 | streams(c.HE.RxStreams, 8)<<2 |
		bit(c.HE.HE8080, 1) | bit(c.HE.HE160, 0)
	v.Flags2 = bit(c.HE.SUBeamformer, 7) | bit(c.HE.MUBeamformer, 6) |
		bit(c.HE.ULMUMIMO, 5) | bit(c.HE.ULOFDMA, 4) | bit(c.HE.DLOFDMA, 3)
	return b.put(op, buf, v)
}

// WiFi6Capability encodes the radio's Wi-Fi 6 capability for the AP
// role only.
func (b *Builder) WiFi6Capability(buf []byte) int {
	const op = "wifi6Capability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	w6 := c.WiFi6
	if w6 == nil {
		return b.noData(op)
	}

	v := wifi6Capability{
		RUID:       b.ruid,
		NumRoles:   1,
		MaxDLOFDMA: w6.MaxDLOFDMA,
		MaxULOFDMA: w6.MaxULOFDMA,
	}
	// Role 0 (AP) in bits 7-6.
	v.RoleFlags = bit(w6.HE160, 5) | bit(w6.HE8080, 4) | heMCSLen&0x0f
	copy(v.MCS[:], w6.MCS)
	v.Flags1 = bit(w6.SUBeamformer, 7) | bit(w6.SUBeamformee, 6) | bit(w6.MUBeamformer, 5)
	v.Flags2 = bit(w6.ULMUMIMO, 7) | bit(w6.ULOFDMA, 6) | bit(w6.DLOFDMA, 5)
	v.MaxMUMIMO = w6.MaxDLMUMIMO<<4 | w6.MaxULMUMIMO&0x0f
	v.Flags3 = bit(w6.RTS, 7) | bit(w6.MURTS, 6) | bit(w6.MultiBSSID, 5) |
		bit(w6.MUEDCA, 4) | bit(w6.TWTRequester, 3) | bit(w6.TWTResponder, 2)
	return b.put(op, buf, v)
}

func (b *Builder) ChannelScanCapability(buf []byte) int {
	const op = "channelScanCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.ChannelScan == nil {
		return b.noData(op)
	}

	v := channelScanCapability{
		RUID:            b.ruid,
		Flags:           bit(c.ChannelScan.OnBootOnly, 7) | (c.ChannelScan.Impact&0x03)<<5,
		MinScanInterval: c.ChannelScan.MinScanInterval,
	}
	return b.put(op, buf, v)
}

func (b *Builder) Profile2APCapability(buf []byte) int {
	const op = "profile2APCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	p := c.Profile2
	if p == nil {
		return b.noData(op)
	}

	v := profile2APCapability{
		MaxPrioritizationRules: p.MaxPrioritizationRules,
		Flags: (p.ByteCounterUnits&0x03)<<6 | bit(p.Prioritization, 5) |
			bit(p.DPPOnboarding, 4) | bit(p.TrafficSeparation, 3),
		MaxVIDs: p.MaxVIDs,
	}
	return b.put(op, buf, v)
}

// DeviceInventory encodes the inventory strings of the radio. Strings
// longer than 64 bytes are truncated.
func (b *Builder) DeviceInventory(buf []byte) int {
	const op = "deviceInventory"
	info := b.dm.Radio(b.ruid)
	if info == nil || info.Inventory == nil {
		return b.noData(op)
	}

	inv := info.Inventory
	v := deviceInventory{
		SerialNumber:    invString(inv.SerialNumber),
		SoftwareVersion: invString(inv.SoftwareVersion),
		ExecutionEnv:    invString(inv.ExecutionEnv),
		NumRadios:       1,
		RUID:            b.ruid,
		ChipsetVendor:   invString(inv.ChipsetVendor),
	}
	return b.put(op, buf, v)
}

func (b *Builder) RadioAdvancedCapability(buf []byte) int {
	const op = "radioAdvancedCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.Advanced == nil {
		return b.noData(op)
	}

	v := radioAdvancedCapability{
		RUID:  b.ruid,
		Flags: bit(c.Advanced.CombinedFrontBack, 7) | bit(c.Advanced.CombinedProfile1And2, 6),
	}
	return b.put(op, buf, v)
}

func (b *Builder) MetricCollectionInterval(buf []byte) int {
	const op = "metricCollectionInterval"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	if c.MetricInterval == nil {
		return b.noData(op)
	}
	return b.put(op, buf, metricCollectionInterval{Interval: c.MetricInterval.Interval})
}

// CACCapability encodes a single radio with a single CAC method.
func (b *Builder) CACCapability(buf []byte) int {
	const op = "cacCapability"
	c := b.radioCap(op)
	if c == nil {
		return 0
	}
	cac := c.CAC
	if cac == nil {
		return b.noData(op)
	}

	dur, err := safeconvert.Uint32ToUint24(cac.Duration)
	if err != nil {
		level.Error(b.logger).Log("op", op, "error", err, "msg", "invalid CAC duration")
		return 0
	}
	v := cacCapability{
		NumRadios:    1,
		RUID:         b.ruid,
		NumTypes:     1,
		Method:       cac.Method,
		Duration:     dur,
		NumOpClasses: cac.NumOpClasses,
	}
	copy(v.CountryCode[:], cac.CountryCode)
	return b.put(op, buf, v)
}

func bit(set bool, pos uint) uint8 {
	if set {
		return 1 << pos
	}
	return 0
}

// streams encodes a spatial stream count as count-1, clamped to
// [1, limit].
func streams(n, limit int) uint8 {
	if n < 1 {
		n = 1
	}
	if n > limit {
		n = limit
	}
	return uint8(n - 1)
}

func invString(s string) inventoryString {
	var v inventoryString
	n := copy(v.Value[:], s)
	v.Len = uint8(n)
	return v
}
