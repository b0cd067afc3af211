package lib

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/netstack/tcpip/header"
)

// Segment is the part of a TCP header the engine looks at.
type Segment struct {
	SourcePort        uint16
	DestinationPort   uint16
	SequenceNumber    uint32
	AcknowledgmentNum uint32
	Flags             uint8
	WindowSize        uint16
	PayloadLength     int
}

func (s *Segment) has(flag uint8) bool { return s.Flags&flag != 0 }

// ParseSegment decodes the TCP header at the start of data. ok is false
// when data is shorter than a header or the header is malformed (bad data
// offset, truncated options).
func ParseSegment(data []byte) (seg Segment, ok bool) {
	if len(data) < TcpHeaderLength {
		return seg, false
	}
	var tcp layers.TCP
	if err := tcp.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return seg, false
	}
	seg = Segment{
		SourcePort:        uint16(tcp.SrcPort),
		DestinationPort:   uint16(tcp.DstPort),
		SequenceNumber:    tcp.Seq,
		AcknowledgmentNum: tcp.Ack,
		Flags:             flagsOf(&tcp),
		WindowSize:        tcp.Window,
		PayloadLength:     len(tcp.Payload),
	}
	return seg, true
}

func flagsOf(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= FINFlag
	}
	if tcp.SYN {
		f |= SYNFlag
	}
	if tcp.RST {
		f |= RSTFlag
	}
	if tcp.PSH {
		f |= PSHFlag
	}
	if tcp.ACK {
		f |= ACKFlag
	}
	if tcp.URG {
		f |= URGFlag
	}
	return f
}

// writeHeader encodes a 20-byte option-less TCP header into frame[:20].
// Checksum and urgent pointer are left zero.
func writeHeader(frame []byte, srcPort, dstPort uint16, seq, ack uint32, flags uint8, window uint16) {
	header.TCP(frame[:TcpHeaderLength]).Encode(&header.TCPFields{
		SrcPort:    srcPort,
		DstPort:    dstPort,
		SeqNum:     seq,
		AckNum:     ack,
		DataOffset: TcpHeaderLength,
		Flags:      flags,
		WindowSize: window,
	})
}
