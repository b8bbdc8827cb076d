package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// DayLayout names the per-day log files.
const DayLayout = "2006-01-02"

// JSONLLog writes one file per calendar day under Dir. Each entry is a single
// O_APPEND write, so a crash can at worst tear the last line.
type JSONLLog struct {
	Dir string

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// Option configures a JSONLLog.
type Option func(*JSONLLog)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *JSONLLog) {
		l.now = now
	}
}

// NewJSONLLog creates the log directory if needed.
func NewJSONLLog(dir string, opts ...Option) (*JSONLLog, error) {
	if dir == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("mkdir", dir, err)
	}
	l := &JSONLLog{Dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends e to the file of the entry's day.
func (l *JSONLLog) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	// Timestamps never go backwards within a process.
	if e.Timestamp.Before(l.last) {
		e.Timestamp = l.last
	}
	l.last = e.Timestamp

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	data = append(data, '\n')

	path := l.dayPath(e.Timestamp)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return storageErr("open", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return storageErr("append", path, err)
	}
	return f.Close()
}

func (l *JSONLLog) dayPath(t time.Time) string {
	return filepath.Join(l.Dir, t.Format(DayLayout)+".jsonl")
}

// ReadDay returns the entries recorded on day, in file order. Lines that do
// not decode (a torn tail after a crash) are skipped.
func (l *JSONLLog) ReadDay(ctx context.Context, day time.Time) ([]Entry, error) {
	f, err := os.Open(l.dayPath(day))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Days lists the days that have a log file, oldest first.
func (l *JSONLLog) Days() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, err
	}
	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		day := strings.TrimSuffix(name, ".jsonl")
		if _, err := time.Parse(DayLayout, day); err == nil {
			days = append(days, day)
		}
	}
	slices.Sort(days)
	return days, nil
}

func storageErr(op, path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("audit %s %s: %w: %w", op, path, core.ErrStorage, err)
	}
	return fmt.Errorf("audit %s %s: %w", op, path, err)
}

var _ Recorder = (*JSONLLog)(nil)
