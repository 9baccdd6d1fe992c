package gateway

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/store"
)

const dateLayout = "2006-01-02"

// Usage is the persisted daily call counter.
type Usage struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type usageCounter struct {
	path   string
	max    int
	now    func() time.Time
	logger *zap.Logger

	mu sync.Mutex
}

// today returns the counter for the current day. A stored counter from an
// earlier day reads as zero, and so does an unreadable one; the next reserve
// rewrites the file.
func (u *usageCounter) today() Usage {
	date := u.now().Format(dateLayout)

	var stored Usage
	if err := store.ReadJSON(u.path, &stored); err != nil {
		u.logger.Warn("usage file is unreadable, starting from zero",
			zap.String("path", u.path),
			zap.Error(err),
		)
		return Usage{Date: date}
	}
	if stored.Date != date {
		return Usage{Date: date}
	}
	return stored
}

// reserve takes one call from today's allowance and persists the new count.
func (u *usageCounter) reserve() (Usage, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	usage := u.today()
	if usage.Count >= u.max {
		return usage, ErrQuotaExceeded
	}

	usage.Count++
	// A count that cannot be persisted must not grant unlimited calls.
	if err := store.WriteJSON(u.path, usage); err != nil {
		return usage, fmt.Errorf("%w: %w", ErrUsageUnsaved, err)
	}
	return usage, nil
}

func (u *usageCounter) reset() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return store.WriteJSON(u.path, Usage{Date: u.now().Format(dateLayout)})
}

const (
	statusSuccess         = "Success"
	statusRateLimit       = "RateLimit"
	statusFailedRateLimit = "Failed_RateLimit"
	statusQuotaExceeded   = "QuotaExceeded"
	statusErrorPrefix     = "Error: "
)

var usageLogHeader = []string{"Date", "Timestamp", "Purpose", "Status"}

// usageLog appends one CSV row per model interaction.
type usageLog struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func (l *usageLog) append(purpose, status string) error {
	if l.path == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := os.Stat(l.path)
	writeHeader := errors.Is(err, fs.ErrNotExist)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open usage log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if writeHeader {
		if err := w.Write(usageLogHeader); err != nil {
			return fmt.Errorf("write usage log header: %w", err)
		}
	}

	now := l.now()
	if err := w.Write([]string{now.Format(dateLayout), now.Format("15:04:05"), purpose, status}); err != nil {
		return fmt.Errorf("write usage log: %w", err)
	}

	w.Flush()
	return w.Error()
}
