// SPDX-License-Identifier:Apache-2.0

// Package transport moves raw 1905 frames over AF_PACKET sockets.
package transport

import (
	"errors"
	"fmt"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mdlayher/packet"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/onewifi-go/easymesh/internal/wire"
)

// ErrNoInterface is returned when no local interface owns a MAC address.
var ErrNoInterface = errors.New("no interface with that hardware address")

// PacketConn is the subset of *packet.Conn the transport relies on.
type PacketConn interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	WriteTo(b []byte, addr net.Addr) (int, error)
	SetBPF(filter []bpf.RawInstruction) error
	SetPromiscuous(enable bool) error
	Close() error
}

var (
	interfaceByName = net.InterfaceByName
	interfaces      = net.Interfaces

	listen = func(ifi *net.Interface, proto int) (PacketConn, error) {
		c, err := packet.Listen(ifi, packet.Raw, proto, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
)

// Filter returns the classic BPF program accepting only frames whose
// EtherType at offset 12 is the 1905 EtherType.
func Filter() []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(wire.EtherType), SkipTrue: 0, SkipFalse: 1},
		bpf.RetConstant{Val: 0xffffffff},
		bpf.RetConstant{Val: 0},
	}
}

// Transport is the receive side of an AL interface: one raw socket
// bound to the interface for all EtherTypes.
type Transport struct {
	logger log.Logger
	ifname string
	conn   PacketConn
}

// Start opens a raw link-layer socket bound to ifname for every
// EtherType. On failure nothing is left open.
func Start(l log.Logger, ifname string) (*Transport, error) {
	ifi, err := interfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("looking up interface %q: %w", ifname, err)
	}

	conn, err := listen(ifi, unix.ETH_P_ALL)
	if err != nil {
		return nil, fmt.Errorf("opening raw socket on %q: %w", ifname, err)
	}

	return &Transport{
		logger: log.With(l, "ifname", ifname),
		ifname: ifname,
		conn:   conn,
	}, nil
}

// InstallFilter attaches the 1905 EtherType filter and joins the
// interface's promiscuous membership. Any failure closes the socket.
func (t *Transport) InstallFilter() error {
	prog, err := bpf.Assemble(Filter())
	if err != nil {
		t.conn.Close()
		return fmt.Errorf("assembling filter: %w", err)
	}

	if err := t.conn.SetBPF(prog); err != nil {
		level.Error(t.logger).Log("op", "installFilter", "error", err, "msg", "failed to attach packet filter")
		t.conn.Close()
		return fmt.Errorf("attaching filter on %q: %w", t.ifname, err)
	}

	if err := t.conn.SetPromiscuous(true); err != nil {
		level.Error(t.logger).Log("op", "installFilter", "error", err, "msg", "failed to set promiscuous membership")
		t.conn.Close()
		return fmt.Errorf("setting promiscuous on %q: %w", t.ifname, err)
	}

	return nil
}

// Receive reads one frame into b.
func (t *Transport) Receive(b []byte) (int, error) {
	n, _, err := t.conn.ReadFrom(b)
	if err != nil {
		return 0, err
	}
	stats.FrameReceived(t.ifname)
	return n, nil
}

// Interface returns the name of the bound interface.
func (t *Transport) Interface() string { return t.ifname }

// Close closes the socket, unblocking any pending Receive.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Sender transmits frames, opening a fresh socket for every send.
type Sender struct{}

// Send writes frame on ifname addressed to dst. The socket is scoped
// to this call.
func (Sender) Send(ifname string, frame []byte, dst net.HardwareAddr) (int, error) {
	ifi, err := interfaceByName(ifname)
	if err != nil {
		stats.SendError(ifname)
		return 0, fmt.Errorf("looking up interface %q: %w", ifname, err)
	}

	conn, err := listen(ifi, int(wire.EtherType))
	if err != nil {
		stats.SendError(ifname)
		return 0, fmt.Errorf("opening send socket on %q: %w", ifname, err)
	}
	defer conn.Close()

	n, err := conn.WriteTo(frame, &packet.Addr{HardwareAddr: dst})
	if err != nil {
		stats.SendError(ifname)
		return n, fmt.Errorf("sending to %s on %q: %w", dst, ifname, err)
	}
	stats.FrameSent(ifname)
	return n, nil
}

// NameFromMAC returns the name of the local interface owning mac.
func NameFromMAC(mac net.HardwareAddr) (string, error) {
	ifs, err := interfaces()
	if err != nil {
		return "", fmt.Errorf("listing interfaces: %w", err)
	}
	for _, ifi := range ifs {
		if ifi.HardwareAddr.String() == mac.String() {
			return ifi.Name, nil
		}
	}
	return "", fmt.Errorf("%s: %w", mac, ErrNoInterface)
}
