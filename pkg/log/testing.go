package log

import "sync"

// Record is a single captured log entry.
type Record struct {
	Level  string
	Msg    string
	Fields []any
}

// Capture is a Logger that records entries in memory for assertions in tests.
type Capture struct {
	mu      sync.Mutex
	records []Record
	context []any
}

// NewCapture returns an empty capture logger.
func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Debug(msg string, fields ...any) { c.add("debug", msg, fields) }
func (c *Capture) Info(msg string, fields ...any)  { c.add("info", msg, fields) }
func (c *Capture) Warn(msg string, fields ...any)  { c.add("warn", msg, fields) }
func (c *Capture) Error(msg string, fields ...any) { c.add("error", msg, fields) }

func (c *Capture) With(fields ...any) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	child := &Capture{context: append(append([]any{}, c.context...), fields...)}
	// Children share the parent's record sink.
	child.records = nil
	return &sharedCapture{parent: c, context: child.context}
}

func (c *Capture) add(level, msg string, fields []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(append([]any{}, c.context...), fields...)
	c.records = append(c.records, Record{Level: level, Msg: msg, Fields: all})
}

// Records returns a copy of everything logged so far.
func (c *Capture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// sharedCapture forwards to its parent so Records() sees child entries too.
type sharedCapture struct {
	parent  *Capture
	context []any
}

func (s *sharedCapture) Debug(msg string, fields ...any) {
	s.parent.add("debug", msg, append(append([]any{}, s.context...), fields...))
}

func (s *sharedCapture) Info(msg string, fields ...any) {
	s.parent.add("info", msg, append(append([]any{}, s.context...), fields...))
}

func (s *sharedCapture) Warn(msg string, fields ...any) {
	s.parent.add("warn", msg, append(append([]any{}, s.context...), fields...))
}

func (s *sharedCapture) Error(msg string, fields ...any) {
	s.parent.add("error", msg, append(append([]any{}, s.context...), fields...))
}

func (s *sharedCapture) With(fields ...any) Logger {
	return &sharedCapture{parent: s.parent, context: append(append([]any{}, s.context...), fields...)}
}
