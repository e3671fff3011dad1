package trace

import "errors"

// fanout feeds both halves of ModeBoth: the stream the user asked for with
// --trace and the ring that is dumped when the server exits with an error.
type fanout struct {
	level Level
	sinks []Tracer
}

func newFanout(level Level, sinks ...Tracer) *fanout {
	return &fanout{level: level, sinks: sinks}
}

func (f *fanout) Emit(ev *Event) {
	for _, s := range f.sinks {
		s.Emit(ev)
	}
}

func (f *fanout) Flush() error {
	var errs []error
	for _, s := range f.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every sink even when an earlier one fails.
func (f *fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

func (f *fanout) Level() Level  { return f.level }
func (f *fanout) Enabled() bool { return f.level > LevelOff }
