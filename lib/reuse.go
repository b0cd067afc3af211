package lib

import (
	"log"

	"github.com/pkg/errors"
)

// AcquireForOutput turns candidate into a buffer of exactly targetLength
// bytes with at least headroom bytes in front, or allocates a fresh one
// when candidate cannot serve. candidate may be nil; if it is not reused
// it is killed. The returned buffer is always exclusive. reused reports
// which path was taken.
func AcquireForOutput(alloc Allocator, candidate *Buffer, targetLength, headroom int) (p *Buffer, reused bool, err error) {
	if candidate == nil ||
		candidate.Shared() ||
		candidate.Headroom() < headroom ||
		candidate.Length()+candidate.Tailroom() < targetLength {
		if candidate != nil {
			log.Printf("could not re-use %d %d %d", candidate.Headroom(), candidate.Length(), candidate.Tailroom())
			candidate.Kill()
		}
		p, err = alloc.Alloc(headroom, targetLength, defaultTailroom)
		if err != nil {
			return nil, false, errors.Wrap(err, "allocating output buffer")
		}
		return p, false, nil
	}

	p, err = candidate.Uniqueify()
	if err != nil {
		return nil, false, err
	}
	if n := p.Length(); n < targetLength {
		_, err = p.Put(targetLength - n)
	} else if n > targetLength {
		err = p.Take(n - targetLength)
	}
	if err != nil {
		p.Kill()
		return nil, false, errors.Wrap(err, "resizing output buffer")
	}
	return p, true, nil
}
