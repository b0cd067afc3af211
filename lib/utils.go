package lib

import (
	"github.com/google/netstack/tcpip/seqnum"
)

func SeqIncrement(seq uint32) uint32 {
	return uint32(seqnum.Value(seq).Add(1)) // wraps at 2^32
}

func SeqIncrementBy(seq, inc uint32) uint32 {
	return uint32(seqnum.Value(seq).Add(seqnum.Size(inc)))
}
