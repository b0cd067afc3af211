package lib

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type ToyTCPConfig struct {
	DestinationPort uint16           // remote port; segments must come from it
	Interval        time.Duration    // period of the forced output
	Headroom        int              // headroom every outgoing buffer must have
	Now             func() time.Time // clock used by Restart
	Reporter        Reporter         // where the counters go every interval
	Lock            sync.Locker      // serializes Push with timer fires
}

func DefaultToyTCPConfig() *ToyTCPConfig {
	return &ToyTCPConfig{
		DestinationPort: 0,
		Interval:        DefaultInterval,
		Headroom:        DefaultHeadroom,
		Now:             time.Now,
		Reporter:        LogReporter{},
	}
}

// connState is everything Restart reinitializes.
type connState struct {
	localPort    uint16
	remotePort   uint16
	iss          uint32 // initial send sequence
	irs          uint32 // initial receive sequence
	sndNxt       uint32
	rcvNxt       uint32
	state        int
	resetPending bool
	grow         int // segments since the last extra output
	windowToggle int
}

// ToyTCP is a one-connection TCP client that keeps sending SYNs until the
// peer ACKs its ISS, then keeps sending one-byte ACK segments. It answers
// every matching inbound segment and sends one more segment per timer
// interval. A RST kills the connection until the next timer fire restarts
// it.
//
// OnSegmentReceived and OnTimerFire must not run concurrently. Push and
// the timer started by Initialize take the engine lock around them.
type ToyTCP struct {
	cfg      ToyTCPConfig
	alloc    Allocator
	output   Output
	mu       sync.Locker
	timer    *Timer
	conn     connState
	counters Counters
	running  bool
	failed   bool
	errs     chan error
}

func NewToyTCP(cfg *ToyTCPConfig, alloc Allocator, output Output) (*ToyTCP, error) {
	if cfg == nil {
		cfg = DefaultToyTCPConfig()
	}
	c := *cfg
	if c.Interval <= 0 {
		return nil, errors.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Headroom < 0 {
		return nil, errors.Errorf("headroom must not be negative, got %d", c.Headroom)
	}
	if alloc == nil {
		return nil, errors.New("no buffer allocator")
	}
	if output == nil {
		output = Discard
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Reporter == nil {
		c.Reporter = LogReporter{}
	}
	if c.Lock == nil {
		c.Lock = new(SpinLock)
	}

	e := &ToyTCP{
		cfg:    c,
		alloc:  alloc,
		output: output,
		mu:     c.Lock,
		errs:   make(chan error, 1),
	}
	e.timer = NewTimer(e.run)
	e.Restart()
	return e, nil
}

// Restart starts a new connection instance: fresh local port and ISS,
// back to the handshake. Counters are kept.
func (e *ToyTCP) Restart() {
	now := e.cfg.Now()
	usec := now.Nanosecond() / int(time.Microsecond)
	e.conn = connState{
		localPort:  uint16(localPortBase + usec%localPortSpread),
		remotePort: e.cfg.DestinationPort,
		iss:        uint32(now.Unix()) & issMask,
		state:      StateHandshakePending,
	}
	e.conn.sndNxt = e.conn.iss
}

// HandleInbound updates the connection from one inbound segment. It
// returns false, touching nothing, when the segment is too short,
// malformed or addressed to another connection.
func (e *ToyTCP) HandleInbound(data []byte) bool {
	seg, ok := ParseSegment(data)
	if !ok {
		return false
	}
	if seg.SourcePort != e.conn.remotePort || seg.DestinationPort != e.conn.localPort {
		return false
	}

	// The handshake check and the RST check are independent. A segment
	// carrying RST never completes the handshake.
	if seg.Flags&(ACKFlag|RSTFlag) == ACKFlag &&
		seg.AcknowledgmentNum == SeqIncrement(e.conn.iss) &&
		e.conn.state == StateHandshakePending {
		e.conn.sndNxt = SeqIncrement(e.conn.iss)
		e.conn.irs = seg.SequenceNumber
		e.conn.rcvNxt = SeqIncrement(e.conn.irs)
		e.conn.state = StateEstablished
		log.Println("ToyTCP connected")
	}

	if seg.has(RSTFlag) {
		log.Printf("ToyTCP: RST from port %d, in %d, out %d", seg.SourcePort, e.counters.GoodIn, e.counters.Out)
		e.counters.BadIn++
		e.conn.resetPending = true
	} else {
		e.counters.GoodIn++
	}
	return true
}

// BuildOutbound builds the next segment, reusing candidate's storage when
// it can. candidate may be nil and is consumed either way. It fails only
// when no buffer can be allocated.
func (e *ToyTCP) BuildOutbound(candidate *Buffer) (*Buffer, error) {
	paylen := 0
	if e.conn.state == StateEstablished {
		paylen = 1
	}
	p, _, err := AcquireForOutput(e.alloc, candidate, TcpHeaderLength+paylen, e.cfg.Headroom)
	if err != nil {
		return nil, err
	}

	var (
		seq, ack uint32
		flags    uint8
	)
	if e.conn.state == StateEstablished {
		seq = SeqIncrementBy(e.conn.sndNxt, 1+uint32(e.counters.Out&seqJitterMask))
		ack = e.conn.rcvNxt
		flags = ACKFlag
	} else {
		seq = e.conn.sndNxt
		flags = SYNFlag
	}

	window := uint16(LargeWindow)
	if e.conn.windowToggle == windowCycle-1 {
		window = SmallWindow
	}
	e.conn.windowToggle = (e.conn.windowToggle + 1) % windowCycle

	frame := p.Data()
	writeHeader(frame, e.conn.localPort, e.conn.remotePort, seq, ack, flags, window)
	if paylen > 0 {
		frame[TcpHeaderLength] = 0
	}

	e.counters.Out++
	return p, nil
}

func (e *ToyTCP) emit(candidate *Buffer) error {
	p, err := e.BuildOutbound(candidate)
	if err != nil {
		return err
	}
	e.output.Push(p)
	return nil
}

// OnSegmentReceived handles one inbound packet. The packet is consumed:
// it is either turned into the reply or killed.
func (e *ToyTCP) OnSegmentReceived(p *Buffer) error {
	if e.conn.resetPending {
		p.Kill()
		return nil
	}
	if !e.HandleInbound(p.Data()) {
		p.Kill()
		return nil
	}
	if err := e.emit(p); err != nil {
		return err
	}
	e.conn.grow++
	if e.conn.grow > growThreshold {
		e.conn.grow = 0
		return e.emit(nil)
	}
	return nil
}

// OnTimerFire is the periodic step: restart a reset connection, send one
// segment, re-arm, report.
func (e *ToyTCP) OnTimerFire() error {
	if e.conn.resetPending {
		e.Restart()
	}
	if err := e.emit(nil); err != nil {
		return err
	}
	if e.running {
		e.timer.ScheduleAfter(e.cfg.Interval)
	}
	e.cfg.Reporter.Report(e.counters)
	return nil
}

// Push is the inbound side of the engine when it sits in a pipeline.
func (e *ToyTCP) Push(p *Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed {
		p.Kill()
		return
	}
	if err := e.OnSegmentReceived(p); err != nil {
		e.fail(err)
	}
}

// Initialize arms the periodic timer.
func (e *ToyTCP) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed {
		return errors.New("engine has failed")
	}
	if e.running {
		return nil
	}
	e.running = true
	e.timer.ScheduleAfter(e.cfg.Interval)
	return nil
}

func (e *ToyTCP) run() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.failed {
		return
	}
	if err := e.OnTimerFire(); err != nil {
		e.fail(err)
	}
}

// fail stops the engine for good. Called with the lock held.
func (e *ToyTCP) fail(err error) {
	err = errors.Wrap(err, "toytcp")
	log.Println(err)
	e.failed = true
	e.running = false
	e.timer.Unschedule()
	select {
	case e.errs <- err:
	default:
	}
}

// Errors delivers the error that stopped the engine, if any.
func (e *ToyTCP) Errors() <-chan error {
	return e.errs
}

// Close stops the timer. Segments pushed afterwards are still handled.
func (e *ToyTCP) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.timer.Unschedule()
	return nil
}

// Counters returns a copy of the counters. It takes the engine lock, so
// it must not be called from a Reporter.
func (e *ToyTCP) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

func (e *ToyTCP) Established() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.state == StateEstablished
}

func (e *ToyTCP) LocalPort() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.localPort
}
