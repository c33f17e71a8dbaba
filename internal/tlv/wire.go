// SPDX-License-Identifier:Apache-2.0

package tlv

// Wire layouts of the capability TLV values. Every struct is packed and
// big-endian when written with encoding/binary, so binary.Size is the
// on-wire length.

type radioBasicCapHeader struct {
	RUID         [6]byte
	NumBSS       uint8
	NumOpClasses uint8
}

type opClassHeader struct {
	OpClass     uint8
	MaxTxPower  int8
	NumChannels uint8
}

// APCapability flag bits.
const (
	apCapOpClassUnassocMetrics    = 1 << 7
	apCapNonOpClassUnassocMetrics = 1 << 6
	apCapRCPISteering             = 1 << 5
)

type apCapability struct {
	Flags uint8
}

type htCapability struct {
	RUID  [6]byte
	Flags uint8
}

type vhtCapability struct {
	RUID   [6]byte
	TxMCS  uint16
	RxMCS  uint16
	Flags1 uint8
	Flags2 uint8
}

const heMCSLen = 12

type heCapability struct {
	RUID   [6]byte
	MCSLen uint8
	MCS    [heMCSLen]byte
	Flags1 uint8
	Flags2 uint8
}

type wifi6Capability struct {
	RUID       [6]byte
	NumRoles   uint8
	RoleFlags  uint8
	MCS        [heMCSLen]byte
	Flags1     uint8
	Flags2     uint8
	MaxMUMIMO  uint8
	MaxDLOFDMA uint8
	MaxULOFDMA uint8
	Flags3     uint8
}

type channelScanCapability struct {
	RUID            [6]byte
	Flags           uint8
	MinScanInterval uint32
	NumOpClasses    uint8
}

type profile2APCapability struct {
	MaxPrioritizationRules uint8
	Reserved               uint8
	Flags                  uint8
	MaxVIDs                uint8
}

const inventoryStringLen = 64

type inventoryString struct {
	Len   uint8
	Value [inventoryStringLen]byte
}

type deviceInventory struct {
	SerialNumber    inventoryString
	SoftwareVersion inventoryString
	ExecutionEnv    inventoryString
	NumRadios       uint8
	RUID            [6]byte
	ChipsetVendor   inventoryString
}

type radioAdvancedCapability struct {
	RUID  [6]byte
	Flags uint8
}

type metricCollectionInterval struct {
	Interval uint32
}

type cacCapability struct {
	CountryCode  [2]byte
	NumRadios    uint8
	RUID         [6]byte
	NumTypes     uint8
	Method       uint8
	Duration     [3]byte
	NumOpClasses uint8
}

// Sizes of the fixed layouts, for callers sizing buffers.
var (
	APCapabilityLen             = sizeOf(apCapability{})
	HTCapabilityLen             = sizeOf(htCapability{})
	VHTCapabilityLen            = sizeOf(vhtCapability{})
	HECapabilityLen             = sizeOf(heCapability{})
	WiFi6CapabilityLen          = sizeOf(wifi6Capability{})
	ChannelScanCapabilityLen    = sizeOf(channelScanCapability{})
	Profile2APCapabilityLen     = sizeOf(profile2APCapability{})
	DeviceInventoryLen          = sizeOf(deviceInventory{})
	RadioAdvancedCapabilityLen  = sizeOf(radioAdvancedCapability{})
	MetricCollectionIntervalLen = sizeOf(metricCollectionInterval{})
	CACCapabilityLen            = sizeOf(cacCapability{})
)
