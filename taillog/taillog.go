// Package taillog is a logrus hook that keeps the most recent log lines in
// memory so the local HTTP API can serve them.
package taillog

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultSize = 100

type TailLog struct {
	mu      sync.Mutex
	entries []string
	size    int
}

// compile time check for hook compatibility
var _ logrus.Hook = (*TailLog)(nil)

func New() *TailLog {
	return &TailLog{
		size: defaultSize,
	}
}

func (t *TailLog) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (t *TailLog) Fire(entry *logrus.Entry) error {
	line := fmt.Sprintf("%s [%s] %s", entry.Time.Format("2006-01-02 15:04:05"), entry.Level, entry.Message)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, line)
	if len(t.entries) > t.size {
		t.entries = t.entries[len(t.entries)-t.size:]
	}

	return nil
}

// Tail returns a copy of the retained log lines, oldest first.
func (t *TailLog) Tail() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]string, len(t.entries))
	copy(entries, t.entries)

	return entries
}
