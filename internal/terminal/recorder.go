package terminal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cast event directions.
const (
	dirInput  = "i"
	dirOutput = "o"
)

// castHeader is the first line of a recording, in asciinema v2 format.
// Extra fields identify the lab session the cast belongs to.
type castHeader struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Env       map[string]string `json:"env,omitempty"`
	VM        string            `json:"vm"`
	Owner     string            `json:"owner,omitempty"`
}

// Recorder appends a terminal session to an asciinema v2 cast file:
// one JSON header line, then one JSON array per event of the form
// [elapsed_seconds, "i"|"o", data]. Input and output share one clock
// and one file, so events replay in the order they were recorded.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	start  time.Time
	events int
	closed bool
}

// NewRecorder creates the cast file for one session and writes its
// header. Files are named <vm>-<timestamp>.cast under dir.
func NewRecorder(dir, vmName, owner string, width, height int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create recording dir: %w", err)
	}

	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.cast", vmName, now.Format("20060102-150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	header := castHeader{
		Version:   2,
		Width:     width,
		Height:    height,
		Timestamp: now.Unix(),
		Env:       map[string]string{"TERM": "xterm-256color"},
		VM:        vmName,
		Owner:     owner,
	}
	line, err := json.Marshal(header)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to marshal cast header: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write cast header: %w", err)
	}

	return &Recorder{
		file:  file,
		path:  path,
		start: now,
	}, nil
}

// Input records bytes sent by the client to the guest.
func (r *Recorder) Input(data []byte) error {
	return r.record(dirInput, data)
}

// Output records bytes sent by the guest to the client.
func (r *Recorder) Output(data []byte) error {
	return r.record(dirOutput, data)
}

func (r *Recorder) record(dir string, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recording already closed")
	}

	elapsed := time.Since(r.start).Seconds()
	line, err := json.Marshal([]interface{}{elapsed, dir, string(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal cast event: %w", err)
	}
	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write cast event: %w", err)
	}
	r.events++
	return nil
}

// EventCount returns the number of events written so far.
func (r *Recorder) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

// Path returns the cast file location.
func (r *Recorder) Path() string {
	return r.path
}

// Close flushes and closes the cast file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
