package probe_test

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var serializeOpts = gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

// icmpPacket builds an IPv4 datagram from remote carrying an ICMP message
// with the given payload.
func icmpPacket(t *testing.T, remote net.IP, typeCode layers.ICMPv4TypeCode, payload []byte) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    remote,
		DstIP:    net.IPv4(127, 0, 0, 1),
	}
	icmp := &layers.ICMPv4{TypeCode: typeCode}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, serializeOpts, ip, icmp, gopacket.Payload(payload)))
	return buf.Bytes()
}

// quotedUDP builds the part of a UDP datagram sent to dst:port which an
// ICMP error message quotes, the IPv4 header and 8 bytes of UDP header.
func quotedUDP(t *testing.T, dst net.IP, port int) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(127, 0, 0, 1),
		DstIP:    dst,
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(port)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, serializeOpts, ip, udp, gopacket.Payload("U")))
	return buf.Bytes()[:28]
}

func portUnreachablePacket(t *testing.T, dst net.IP, port int) []byte {
	t.Helper()
	return icmpPacket(t, dst,
		layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodePort),
		quotedUDP(t, dst, port))
}

func echoReplyPacket(t *testing.T, remote net.IP) []byte {
	t.Helper()
	return icmpPacket(t, remote,
		layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		[]byte("ping"))
}
