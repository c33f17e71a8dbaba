// SPDX-License-Identifier:Apache-2.0

package dm

import (
	"fmt"
	"net"
)

// MAC is a 48-bit hardware address usable as a map key and as a YAML
// string.
type MAC [6]byte

// ParseMAC parses s in any form accepted by net.ParseMAC.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	return MACFrom(hw)
}

// MACFrom converts a net.HardwareAddr.
func MACFrom(hw net.HardwareAddr) (MAC, error) {
	var m MAC
	if len(hw) != len(m) {
		return m, fmt.Errorf("%q is not a 48-bit MAC address", hw)
	}
	copy(m[:], hw)
	return m, nil
}

// HardwareAddr returns m as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr(append([]byte(nil), m[:]...))
}

func (m MAC) String() string { return m.HardwareAddr().String() }

// MarshalText implements encoding.TextMarshaler.
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MAC) UnmarshalText(b []byte) error {
	v, err := ParseMAC(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// FreqBand is a Wi-Fi frequency band as carried in 1905 TLVs.
type FreqBand uint8

const (
	Band2G FreqBand = 0x00
	Band5G FreqBand = 0x01
	Band6G FreqBand = 0x02
)

// OpClass is one operating class a radio supports.
type OpClass struct {
	Class      uint8   `json:"class"`
	MaxTxPower int8    `json:"maxTxPower"`
	Channels   []uint8 `json:"channels"`
}

// Inventory is the device inventory record of a radio.
type Inventory struct {
	SerialNumber    string `json:"serialNumber"`
	SoftwareVersion string `json:"softwareVersion"`
	ExecutionEnv    string `json:"executionEnv"`
	ChipsetVendor   string `json:"chipsetVendor"`
}

// RadioInfo holds per-radio operational data.
type RadioInfo struct {
	Name      string     `json:"name"`
	NumBSS    int        `json:"numBSS"`
	OpClasses []OpClass  `json:"opClasses,omitempty"`
	Inventory *Inventory `json:"inventory,omitempty"`

	UnassocSTALinkMetricsOpClass    bool `json:"unassocSTALinkMetricsOpClass"`
	UnassocSTALinkMetricsNonOpClass bool `json:"unassocSTALinkMetricsNonOpClass"`
	RCPISteering                    bool `json:"rcpiSteering"`
}

// HTCap is the 802.11n capability of a radio.
type HTCap struct {
	TxStreams int  `json:"txStreams"`
	RxStreams int  `json:"rxStreams"`
	SGI20     bool `json:"sgi20"`
	SGI40     bool `json:"sgi40"`
	HT40      bool `json:"ht40"`
}

// VHTCap is the 802.11ac capability of a radio.
type VHTCap struct {
	TxMCS        uint16 `json:"txMCS"`
	RxMCS        uint16 `json:"rxMCS"`
	TxStreams    int    `json:"txStreams"`
	RxStreams    int    `json:"rxStreams"`
	SGI80        bool   `json:"sgi80"`
	SGI160       bool   `json:"sgi160"`
	VHT8080      bool   `json:"vht8080"`
	VHT160       bool   `json:"vht160"`
	SUBeamformer bool   `json:"suBeamformer"`
	MUBeamformer bool   `json:"muBeamformer"`
}

// HECap is the 802.11ax capability of a radio.
type HECap struct {
	MCS          []byte `json:"mcs"`
	TxStreams    int    `json:"txStreams"`
	RxStreams    int    `json:"rxStreams"`
	HE8080       bool   `json:"he8080"`
	HE160        bool   `json:"he160"`
	SUBeamformer bool   `json:"suBeamformer"`
	MUBeamformer bool   `json:"muBeamformer"`
	ULMUMIMO     bool   `json:"ulMUMIMO"`
	ULOFDMA      bool   `json:"ulOFDMA"`
	DLOFDMA      bool   `json:"dlOFDMA"`
}

// WiFi6Cap is the Wi-Fi 6 capability of a radio in its AP role.
type WiFi6Cap struct {
	HE160        bool   `json:"he160"`
	HE8080       bool   `json:"he8080"`
	MCS          []byte `json:"mcs"`
	SUBeamformer bool   `json:"suBeamformer"`
	SUBeamformee bool   `json:"suBeamformee"`
	MUBeamformer bool   `json:"muBeamformer"`
	ULMUMIMO     bool   `json:"ulMUMIMO"`
	ULOFDMA      bool   `json:"ulOFDMA"`
	DLOFDMA      bool   `json:"dlOFDMA"`
	MaxDLMUMIMO  uint8  `json:"maxDLMUMIMO"`
	MaxULMUMIMO  uint8  `json:"maxULMUMIMO"`
	MaxDLOFDMA   uint8  `json:"maxDLOFDMA"`
	MaxULOFDMA   uint8  `json:"maxULOFDMA"`
	RTS          bool   `json:"rts"`
	MURTS        bool   `json:"muRTS"`
	MultiBSSID   bool   `json:"multiBSSID"`
	MUEDCA       bool   `json:"muEDCA"`
	TWTRequester bool   `json:"twtRequester"`
	TWTResponder bool   `json:"twtResponder"`
}

// ChannelScanCap describes the channel scan support of a radio.
type ChannelScanCap struct {
	OnBootOnly      bool   `json:"onBootOnly"`
	Impact          uint8  `json:"impact"`
	MinScanInterval uint32 `json:"minScanInterval"`
}

// Profile2Cap is the Multi-AP profile-2 capability of the agent.
type Profile2Cap struct {
	MaxPrioritizationRules uint8 `json:"maxPrioritizationRules"`
	ByteCounterUnits       uint8 `json:"byteCounterUnits"`
	Prioritization         bool  `json:"prioritization"`
	DPPOnboarding          bool  `json:"dppOnboarding"`
	TrafficSeparation      bool  `json:"trafficSeparation"`
	MaxVIDs                uint8 `json:"maxVIDs"`
}

// AdvancedCap is the AP radio advanced capability.
type AdvancedCap struct {
	CombinedFrontBack    bool `json:"combinedFrontBack"`
	CombinedProfile1And2 bool `json:"combinedProfile1And2"`
}

// MetricInterval is the metric collection interval in milliseconds.
type MetricInterval struct {
	Interval uint32 `json:"interval"`
}

// CACCap describes the channel availability check support of a
// radio. Duration is in seconds and must fit in 24 bits.
type CACCap struct {
	CountryCode  string `json:"countryCode"`
	Method       uint8  `json:"method"`
	Duration     uint32 `json:"duration"`
	NumOpClasses uint8  `json:"numOpClasses"`
}

// RadioCap groups every capability record of one radio. A nil member
// means the capability is not known.
type RadioCap struct {
	HT             *HTCap          `json:"ht,omitempty"`
	VHT            *VHTCap         `json:"vht,omitempty"`
	HE             *HECap          `json:"he,omitempty"`
	WiFi6          *WiFi6Cap       `json:"wifi6,omitempty"`
	ChannelScan    *ChannelScanCap `json:"channelScan,omitempty"`
	Profile2       *Profile2Cap    `json:"profile2,omitempty"`
	Advanced       *AdvancedCap    `json:"advanced,omitempty"`
	MetricInterval *MetricInterval `json:"metricInterval,omitempty"`
	CAC            *CACCap         `json:"cac,omitempty"`
}

// Radio is one radio record of the data model.
type Radio struct {
	ID   MAC        `json:"id"`
	Info *RadioInfo `json:"info,omitempty"`
	Cap  *RadioCap  `json:"cap,omitempty"`
}

// Device is the device-level record.
type Device struct {
	ALMAC        MAC    `json:"alMAC"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
}
