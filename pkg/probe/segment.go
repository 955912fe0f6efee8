package probe

import (
	"encoding/binary"
	"net"
)

// TCP flag bits
const (
	flagFIN = 0x01
	flagSYN = 0x02
	flagRST = 0x04
	flagACK = 0x10
)

const (
	tcpHeaderLen = 20
	protoTCP     = 6
	synWindow    = 1024
)

// segment is the part of a TCP header the stealth prober inspects
type segment struct {
	srcPort uint16
	dstPort uint16
	seq     uint32
	ack     uint32
	flags   uint8
}

// buildSYN returns a 20-byte TCP header with only SYN set and a valid checksum
func buildSYN(src, dst net.IP, srcPort, dstPort int, seq uint32) []byte {
	h := make([]byte, tcpHeaderLen)

	binary.BigEndian.PutUint16(h[0:], uint16(srcPort))
	binary.BigEndian.PutUint16(h[2:], uint16(dstPort))
	binary.BigEndian.PutUint32(h[4:], seq)
	// ack stays 0
	h[12] = byte((tcpHeaderLen / 4) << 4)
	h[13] = flagSYN
	binary.BigEndian.PutUint16(h[14:], synWindow)

	binary.BigEndian.PutUint16(h[16:], tcpChecksum(src, dst, h))
	return h
}

// tcpChecksum computes the checksum over the IPv4 pseudo-header and segment
func tcpChecksum(src, dst net.IP, seg []byte) uint16 {
	buf := make([]byte, 0, 12+len(seg))
	buf = append(buf, src.To4()...)
	buf = append(buf, dst.To4()...)
	buf = append(buf, 0, protoTCP)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(seg)))
	buf = append(buf, seg...)
	return checksum(buf)
}

// checksum is the 16-bit one's complement of the one's complement sum
func checksum(data []byte) uint16 {
	var sum uint32
	for len(data) > 1 {
		sum += uint32(binary.BigEndian.Uint16(data))
		data = data[2:]
	}
	if len(data) > 0 {
		sum += uint32(data[0]) << 8
	}
	for sum>>16 > 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return uint16(^sum)
}

// parseSegment decodes the fixed TCP header fields from b
func parseSegment(b []byte) (segment, bool) {
	if len(b) < tcpHeaderLen {
		return segment{}, false
	}
	return segment{
		srcPort: binary.BigEndian.Uint16(b[0:]),
		dstPort: binary.BigEndian.Uint16(b[2:]),
		seq:     binary.BigEndian.Uint32(b[4:]),
		ack:     binary.BigEndian.Uint32(b[8:]),
		flags:   b[13],
	}, true
}

// classifySegment maps a reply to the probed port to a state.
// RST means closed, any other flagged reply means something is listening.
func classifySegment(s segment) (State, bool) {
	switch {
	case s.flags&flagRST != 0:
		return StateClosed, true
	case s.flags != 0:
		return StateOpen, true
	default:
		return StateClosed, false
	}
}
