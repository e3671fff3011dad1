package trace

import (
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer retains the most recent events of a session in memory so a
// failing `dpscript lsp` or `dpscript check` can print what led up to it.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
	level Level
}

func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

// Emit keeps every event at LevelError; the ring is only read after a
// failure and needs the surrounding requests.
func (r *RingTracer) Emit(ev *Event) {
	if r.level != LevelError && !r.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	r.mu.Lock()
	r.buf[r.next] = stored
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Snapshot returns the retained events, oldest first.
func (r *RingTracer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Dump writes the retained events to w as text lines.
func (r *RingTracer) Dump(w io.Writer) error {
	for _, ev := range r.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, FormatText)); err != nil {
			return err
		}
	}
	return nil
}

func (r *RingTracer) Flush() error  { return nil }
func (r *RingTracer) Close() error  { return nil }
func (r *RingTracer) Level() Level  { return r.level }
func (r *RingTracer) Enabled() bool { return r.level > LevelOff }
