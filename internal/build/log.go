package build

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogManager creates and tracks subsystem loggers that share a single root
// handler. All subsystem levels can be adjusted together or individually,
// matching how each internal package carries its own package-level logger.
type LogManager struct {
	root btclogv2.Handler

	mu   sync.Mutex
	subs map[string]btclogv2.Handler
}

// NewLogManager creates a manager writing human-readable log lines to w.
func NewLogManager(w io.Writer) *LogManager {
	return &LogManager{
		root: btclogv2.NewDefaultHandler(w),
		subs: make(map[string]btclogv2.Handler),
	}
}

// NewLogManagerWithHandlers creates a manager fanning each log record out
// to every given handler, e.g. stderr plus a rotating log file.
func NewLogManagerWithHandlers(handlers ...btclogv2.Handler) *LogManager {
	return &LogManager{
		root: newFanoutHandler(handlers...),
		subs: make(map[string]btclogv2.Handler),
	}
}

// Logger returns a logger for the given subsystem tag, creating and
// registering its handler on first use.
func (m *LogManager) Logger(tag string) btclogv2.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.subs[tag]
	if !ok {
		h = m.root.SubSystem(tag)
		m.subs[tag] = h
	}

	return btclogv2.NewSLogger(h)
}

// SetLevels applies the given level to every registered subsystem handler
// and to the root so future subsystems inherit it.
func (m *LogManager) SetLevels(level btclog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.root.SetLevel(level)
	for _, h := range m.subs {
		h.SetLevel(level)
	}
}

// SubSystems returns the sorted tags of all registered subsystems.
func (m *LogManager) SubSystems() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.subs))
	for tag := range m.subs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}

// ParseLevel converts a level string such as "debug" into a btclog level.
func ParseLevel(s string) (btclog.Level, error) {
	level, ok := btclog.LevelFromString(s)
	if !ok {
		return btclog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}
