package lib

import "time"

// connection states
const (
	StateHandshakePending = 0 // SYN sent, waiting for the peer's ACK
	StateEstablished      = 1 // handshake ACK seen, every segment carries one byte
)

// Flag constants
const (
	URGFlag uint8 = 1 << 5
	ACKFlag uint8 = 1 << 4
	PSHFlag uint8 = 1 << 3
	RSTFlag uint8 = 1 << 2
	SYNFlag uint8 = 1 << 1
	FINFlag uint8 = 1 << 0
)

const (
	TcpHeaderLength = 20 //options not included
	EtherHeaderLen  = 14
	IpHeaderLength  = 20
	// DefaultHeadroom leaves room for downstream stages to prepend an
	// Ethernet and an IPv4 header without reallocating.
	DefaultHeadroom = EtherHeaderLen + IpHeaderLength
)

const (
	DefaultInterval  = 1000 * time.Millisecond
	LargeWindow      = 60 * 1024
	SmallWindow      = 30 * 1024
	windowCycle      = 3     // window toggles large, large, small
	growThreshold    = 4     // an extra segment goes out once grow exceeds this
	seqJitterMask    = 0xfff // established seq offset is Out mod 4096
	issMask          = 0x0fffffff
	localPortBase    = 1024
	localPortSpread  = 60000
	defaultTailroom  = 64
	defaultChunkSize = 2048
	defaultPoolSize  = 512
)
