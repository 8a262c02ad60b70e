package logger

import "sync"

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
	Metadata  map[string]interface{}
}

type testLogStore struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

// TestLogger records entries in memory. Loggers derived with With or
// WithPrefix record into the same store as their parent.
type TestLogger struct {
	metadata map[string]interface{}
	store    *testLogStore
}

var _ Logger = (*TestLogger)(nil)

// WithPrefix will return a new logger with a prefix prepended to the message
func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := make(map[string]interface{}, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	return &TestLogger{metadata: kv, store: c.store}
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return true
}

func (c *TestLogger) record(level string, msg string, args ...interface{}) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.entries = append(c.store.entries, TestLogEntry{level, msg, args, c.metadata})
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.record("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.record("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.record("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.record("WARNING", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.record("ERROR", msg, args...) }

// Logs returns a copy of everything recorded so far.
func (c *TestLogger) Logs() []TestLogEntry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]TestLogEntry(nil), c.store.entries...)
}

// Has reports whether an entry with the given severity and message was recorded.
func (c *TestLogger) Has(severity, msg string) bool {
	for _, e := range c.Logs() {
		if e.Severity == severity && e.Message == msg {
			return true
		}
	}
	return false
}

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{store: &testLogStore{}}
}
