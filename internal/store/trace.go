package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEntry is one evaluated iterate of a run, stored as one line of
// runs/<id>/trace.jsonl.
type TraceEntry struct {
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
	GradNorm  float64 `json:"gradNorm"`

	// StepNorm is the norm of the step that led to this iterate.
	StepNorm float64 `json:"stepNorm,omitempty"`

	// SkippedUpdate marks a quasi-Newton step that kept the previous
	// inverse-Hessian approximation.
	SkippedUpdate bool `json:"skippedUpdate,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// X is the iterate. Omitted unless the observer was asked for points.
	X []float64 `json:"x,omitempty"`
}

func tracePath(baseDir, runID string) string {
	return filepath.Join(runDir(baseDir, runID), "trace.jsonl")
}

// TraceWriter appends TraceEntry lines to a run's trace.jsonl. Entries are
// buffered in memory until Flush or Close. All methods may be called from
// several goroutines.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	path string
}

// NewTraceWriter opens the trace of runID below baseDir, creating the run
// directory if needed. An existing trace is truncated unless appendMode is
// set.
func NewTraceWriter(baseDir, runID string, appendMode bool) (*TraceWriter, error) {
	if err := os.MkdirAll(runDir(baseDir, runID), 0755); err != nil {
		return nil, fmt.Errorf("trace %s: %w", runID, err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	path := tracePath(baseDir, runID)
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", runID, err)
	}

	buf := bufio.NewWriterSize(file, 64*1024)
	return &TraceWriter{file: file, buf: buf, enc: json.NewEncoder(buf), path: path}, nil
}

// Write buffers one entry as a JSON line.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.enc.Encode(entry); err != nil {
		return fmt.Errorf("encode trace entry %d: %w", entry.Iteration, err)
	}
	return nil
}

// Flush pushes buffered entries to disk.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tw.path, err)
	}
	return tw.file.Sync()
}

// Close flushes and closes the file. The file is closed even if the flush
// fails.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	flushErr := tw.buf.Flush()
	closeErr := tw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", tw.path, flushErr)
	}
	return closeErr
}

// Path returns the trace file path.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader decodes the entries of a trace file in order.
type TraceReader struct {
	file *os.File
	dec  *json.Decoder
}

// NewTraceReader opens the trace of runID. It returns a NotFoundError when the
// run has no trace.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	file, err := os.Open(tracePath(baseDir, runID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("trace %s: %w", runID, err)
	}
	return &TraceReader{file: file, dec: json.NewDecoder(bufio.NewReader(file))}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	var entry TraceEntry
	if err := tr.dec.Decode(&entry); err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, fmt.Errorf("decode %s: %w", tr.file.Name(), err)
	}
	return &entry, nil
}

// ReadAll returns every entry not read yet.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying file.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}

// DeleteTrace removes the trace of runID. A missing trace is not an error.
func DeleteTrace(baseDir, runID string) error {
	if err := os.Remove(tracePath(baseDir, runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete trace %s: %w", runID, err)
	}
	return nil
}
