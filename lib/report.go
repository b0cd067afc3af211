package lib

import "log"

// Counters are the engine's only visibility into dropped-by-design
// traffic. They survive Restart.
type Counters struct {
	GoodIn uint64 // matching segments without RST
	BadIn  uint64 // matching segments with RST
	Out    uint64 // segments built
}

// Reporter receives the counters once per timer interval. It is called
// with the engine lock held and must not call back into the engine.
type Reporter interface {
	Report(c Counters)
}

type ReporterFunc func(c Counters)

func (f ReporterFunc) Report(c Counters) { f(c) }

// LogReporter writes the counters with the standard logger.
type LogReporter struct {
	Prefix string
}

func (r LogReporter) Report(c Counters) {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "ToyTCP"
	}
	log.Printf("%s: %d good in, %d bad in, %d out", prefix, c.GoodIn, c.BadIn, c.Out)
}
