package probe

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var typeCodePortUnreachable = layers.CreateICMPv4TypeCode(
	layers.ICMPv4TypeDestinationUnreachable,
	layers.ICMPv4CodePort,
)

// decodeICMP reads the IPv4 header, using its declared length to find the
// ICMP header beneath it. Short or malformed packets yield ErrTruncated.
func decodeICMP(pkt []byte) (*layers.ICMPv4, error) {
	var ip4 layers.IPv4
	if err := ip4.DecodeFromBytes(pkt, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("%w: ipv4: %w", ErrTruncated, err)
	}
	if ip4.Protocol != layers.IPProtocolICMPv4 {
		return nil, fmt.Errorf("unexpected protocol %s", ip4.Protocol)
	}
	var icmp layers.ICMPv4
	if err := icmp.DecodeFromBytes(ip4.Payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("%w: icmp: %w", ErrTruncated, err)
	}
	return &icmp, nil
}

// portUnreachable reports whether pkt is an ICMP port unreachable for a
// UDP datagram sent to dst:port. The original datagram quoted by the ICMP
// message is checked when it can be decoded; a quote too short to tell is
// trusted.
func portUnreachable(pkt []byte, dst net.IP, port int) bool {
	icmp, err := decodeICMP(pkt)
	if err != nil {
		return false
	}
	if icmp.TypeCode != typeCodePortUnreachable {
		return false
	}

	var quoted layers.IPv4
	if err := quoted.DecodeFromBytes(icmp.Payload, gopacket.NilDecodeFeedback); err != nil {
		return true
	}
	if quoted.Protocol != layers.IPProtocolUDP {
		return false
	}
	if dst != nil && !quoted.DstIP.Equal(dst) {
		return false
	}
	var udp layers.UDP
	if err := udp.DecodeFromBytes(quoted.Payload, gopacket.NilDecodeFeedback); err != nil {
		return true
	}
	return int(udp.DstPort) == port
}
