// SPDX-License-Identifier:Apache-2.0

package tlv

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"

	"github.com/onewifi-go/easymesh/internal/dm"
	"github.com/onewifi-go/easymesh/internal/wire"
)

var ruid = dm.MAC{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0x01}

func fullModel() *dm.EasyMesh {
	d := dm.New()
	d.SetRadio(&dm.Radio{
		ID: ruid,
		Info: &dm.RadioInfo{
			Name:                         "wl0",
			NumBSS:                       4,
			RCPISteering:                 true,
			UnassocSTALinkMetricsOpClass: true,
			Inventory: &dm.Inventory{
				SerialNumber:    "SN-1",
				SoftwareVersion: "2.1",
				ExecutionEnv:    "linux",
				ChipsetVendor:   "acme",
			},
		},
		Cap: &dm.RadioCap{
			HT:             &dm.HTCap{TxStreams: 2, RxStreams: 2, SGI20: true, HT40: true},
			VHT:            &dm.VHTCap{TxMCS: 0xfffa, RxMCS: 0xfffa, TxStreams: 4, RxStreams: 4, SGI80: true, VHT160: true},
			HE:             &dm.HECap{MCS: []byte{1, 2, 3, 4}, TxStreams: 2, RxStreams: 2, HE160: true, DLOFDMA: true},
			WiFi6:          &dm.WiFi6Cap{HE160: true, MCS: []byte{9}, SUBeamformer: true, MaxDLMUMIMO: 4, MaxULMUMIMO: 2, TWTResponder: true},
			ChannelScan:    &dm.ChannelScanCap{OnBootOnly: true, Impact: 2, MinScanInterval: 300},
			Profile2:       &dm.Profile2Cap{MaxPrioritizationRules: 8, DPPOnboarding: true, MaxVIDs: 2},
			Advanced:       &dm.AdvancedCap{CombinedFrontBack: true},
			MetricInterval: &dm.MetricInterval{Interval: 5000},
			CAC:            &dm.CACCap{CountryCode: "US", Method: 1, Duration: 600, NumOpClasses: 0},
		},
	})
	return d
}

type encoderCase struct {
	desc string
	enc  func(*Builder) Encoder
	size int
}

var encoderCases = []encoderCase{
	{"ap capability", func(b *Builder) Encoder { return b.APCapability }, 1},
	{"ht", func(b *Builder) Encoder { return b.HTCapability }, 7},
	{"vht", func(b *Builder) Encoder { return b.VHTCapability }, 12},
	{"he", func(b *Builder) Encoder { return b.HECapability }, 21},
	{"wifi6", func(b *Builder) Encoder { return b.WiFi6Capability }, 26},
	{"channel scan", func(b *Builder) Encoder { return b.ChannelScanCapability }, 12},
	{"profile-2", func(b *Builder) Encoder { return b.Profile2APCapability }, 4},
	{"device inventory", func(b *Builder) Encoder { return b.DeviceInventory }, 267},
	{"radio advanced", func(b *Builder) Encoder { return b.RadioAdvancedCapability }, 7},
	{"metric interval", func(b *Builder) Encoder { return b.MetricCollectionInterval }, 4},
	{"cac", func(b *Builder) Encoder { return b.CACCapability }, 15},
}

func poisoned(n int) []byte {
	return bytes.Repeat([]byte{0xa5}, n)
}

func TestEncodersMissingRecord(t *testing.T) {
	models := map[string]*dm.EasyMesh{
		"no radio": dm.New(),
		"no capabilities": func() *dm.EasyMesh {
			d := dm.New()
			d.SetRadio(&dm.Radio{ID: ruid, Info: &dm.RadioInfo{}, Cap: &dm.RadioCap{}})
			return d
		}(),
	}
	for name, model := range models {
		b := NewBuilder(log.NewNopLogger(), model, ruid)
		for _, tc := range encoderCases {
			if name == "no capabilities" && tc.desc == "ap capability" {
				// Backed by the radio record itself, which exists.
				continue
			}
			t.Run(name+"/"+tc.desc, func(t *testing.T) {
				buf := poisoned(512)
				if n := tc.enc(b)(buf); n != 0 {
					t.Errorf("encoded %d bytes, want 0", n)
				}
				if diff := cmp.Diff(poisoned(512), buf); diff != "" {
					t.Errorf("buffer written (-want +got)\n%s", diff)
				}
			})
		}
	}
}

func TestEncodersSize(t *testing.T) {
	b := NewBuilder(log.NewNopLogger(), fullModel(), ruid)
	for _, tc := range encoderCases {
		t.Run(tc.desc, func(t *testing.T) {
			buf := poisoned(512)
			n := tc.enc(b)(buf)
			if n != tc.size {
				t.Fatalf("encoded %d bytes, want %d", n, tc.size)
			}
			if diff := cmp.Diff(poisoned(512-n), buf[n:]); diff != "" {
				t.Errorf("wrote past the encoded length (-want +got)\n%s", diff)
			}
		})
	}
}

func TestEncodersShortBuffer(t *testing.T) {
	b := NewBuilder(log.NewNopLogger(), fullModel(), ruid)
	for _, tc := range encoderCases {
		t.Run(tc.desc, func(t *testing.T) {
			buf := poisoned(tc.size - 1)
			if n := tc.enc(b)(buf); n != 0 {
				t.Errorf("encoded %d bytes into a %d byte buffer", n, len(buf))
			}
			if diff := cmp.Diff(poisoned(tc.size-1), buf); diff != "" {
				t.Errorf("buffer written (-want +got)\n%s", diff)
			}
		})
	}
}

func TestEncodedValues(t *testing.T) {
	b := NewBuilder(log.NewNopLogger(), fullModel(), ruid)
	r := ruid[:]

	tests := []struct {
		desc string
		enc  Encoder
		want []byte
	}{
		{
			desc: "ap capability",
			enc:  b.APCapability,
			want: []byte{0xa0},
		},
		{
			desc: "ht",
			enc:  b.HTCapability,
			want: append(append([]byte{}, r...), 0x5a),
		},
		{
			desc: "vht",
			enc:  b.VHTCapability,
			want: append(append([]byte{}, r...), 0xff, 0xfa, 0xff, 0xfa, 0x6e, 0x40),
		},
		{
			desc: "channel scan",
			enc:  b.ChannelScanCapability,
			want: append(append([]byte{}, r...), 0xc0, 0, 0, 0x01, 0x2c, 0),
		},
		{
			desc: "profile-2",
			enc:  b.Profile2APCapability,
			want: []byte{8, 0, 0x10, 2},
		},
		{
			desc: "metric interval",
			enc:  b.MetricCollectionInterval,
			want: []byte{0, 0, 0x13, 0x88},
		},
		{
			desc: "cac",
			enc:  b.CACCapability,
			want: append(append([]byte{'U', 'S', 1}, r...), 1, 1, 0, 0x02, 0x58, 0),
		},
		{
			desc: "radio advanced",
			enc:  b.RadioAdvancedCapability,
			want: append(append([]byte{}, r...), 0x80),
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			buf := make([]byte, 64)
			n := tc.enc(buf)
			if diff := cmp.Diff(tc.want, buf[:n]); diff != "" {
				t.Errorf("unexpected encoding (-want +got)\n%s", diff)
			}
		})
	}
}

func TestDeviceInventory(t *testing.T) {
	b := NewBuilder(log.NewNopLogger(), fullModel(), ruid)
	buf := make([]byte, 512)
	n := b.DeviceInventory(buf)
	if n != DeviceInventoryLen {
		t.Fatalf("encoded %d bytes, want %d", n, DeviceInventoryLen)
	}
	if buf[0] != 4 || string(buf[1:5]) != "SN-1" {
		t.Errorf("unexpected serial number field %q", buf[:5])
	}
	radios := 3 * (1 + inventoryStringLen)
	if buf[radios] != 1 || !bytes.Equal(buf[radios+1:radios+7], ruid[:]) {
		t.Errorf("unexpected radio block % x", buf[radios:radios+7])
	}
}

func TestAPRadioBasicCapability(t *testing.T) {
	r := ruid[:]
	tests := []struct {
		desc  string
		model *dm.EasyMesh
		want  []byte
	}{
		{
			desc:  "no radio record uses the command's operating class",
			model: dm.New(),
			want:  append(append([]byte{}, r...), 1, 1, 115, 0, 1, 36),
		},
		{
			desc: "operating classes from the data model",
			model: func() *dm.EasyMesh {
				d := dm.New()
				d.SetRadio(&dm.Radio{ID: ruid, Info: &dm.RadioInfo{
					NumBSS: 2,
					OpClasses: []dm.OpClass{
						{Class: 81, MaxTxPower: 20, Channels: []uint8{1, 6, 11}},
						{Class: 115, MaxTxPower: -3},
					},
				}})
				return d
			}(),
			want: append(append([]byte{}, r...), 2, 2, 81, 20, 3, 1, 6, 11, 115, 0xfd, 0),
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			b := NewBuilder(log.NewNopLogger(), tc.model, ruid).WithOpClass(115, 36)
			buf := make([]byte, 64)
			n := b.APRadioBasicCapability(buf)
			if diff := cmp.Diff(tc.want, buf[:n]); diff != "" {
				t.Errorf("unexpected encoding (-want +got)\n%s", diff)
			}
		})
	}

	// No operating class known at all.
	buf := poisoned(64)
	if n := NewBuilder(log.NewNopLogger(), dm.New(), ruid).APRadioBasicCapability(buf); n != 0 {
		t.Errorf("encoded %d bytes without an operating class, want 0", n)
	}
	if diff := cmp.Diff(poisoned(64), buf); diff != "" {
		t.Errorf("buffer written (-want +got)\n%s", diff)
	}

	// The single-entry form is 12 bytes on the wire.
	b := NewBuilder(log.NewNopLogger(), dm.New(), ruid).WithOpClass(81, 6)
	if n := b.APRadioBasicCapability(make([]byte, 64)); n != 12 {
		t.Errorf("single entry encoded to %d bytes, want 12", n)
	}
	if n := b.APRadioBasicCapability(make([]byte, 11)); n != 0 {
		t.Errorf("short buffer encoded %d bytes", n)
	}
}

func TestCollect(t *testing.T) {
	d := dm.New()
	d.SetRadio(&dm.Radio{ID: ruid, Info: &dm.RadioInfo{}, Cap: &dm.RadioCap{
		HT: &dm.HTCap{TxStreams: 1, RxStreams: 1},
	}})
	b := NewBuilder(log.NewNopLogger(), d, ruid).WithOpClass(81, 6)

	var got []uint8
	for _, v := range Collect(b.Capabilities(), 1500) {
		got = append(got, v.Type)
	}
	want := []uint8{wire.TLVAPCapability, wire.TLVAPRadioBasicCapabilities, wire.TLVHTCapabilities}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected TLVs (-want +got)\n%s", diff)
	}
}

func TestInvalidCACDuration(t *testing.T) {
	d := dm.New()
	d.SetRadio(&dm.Radio{ID: ruid, Cap: &dm.RadioCap{CAC: &dm.CACCap{Duration: 1 << 24}}})
	b := NewBuilder(log.NewNopLogger(), d, ruid)
	if n := b.CACCapability(make([]byte, 64)); n != 0 {
		t.Errorf("encoded %d bytes for an overflowing duration", n)
	}
}
