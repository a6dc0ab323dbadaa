// Package tracking records experiment scalars and model graphs to a log
// directory.
package tracking

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// File names inside a log directory.
const (
	ScalarsFile = "scalars.jsonl"
	GraphFile   = "graph.dot"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("tracking: writer closed")

// Writer receives scalars keyed by tag and step plus a model graph.
type Writer interface {
	AddScalar(tag string, value float64, step int) error
	AddGraph(g graph.Directed) error
	Flush() error
	Close() error
}

// Scalar is one line of the scalars file.
type Scalar struct {
	WallTime float64 `json:"wall_time"`
	Step     int     `json:"step"`
	Tag      string  `json:"tag"`
	Value    float64 `json:"value"`
}

// FileWriter appends scalars as JSON lines and writes the graph in DOT.
type FileWriter struct {
	mu     sync.Mutex
	dir    string
	f      *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
	now    func() time.Time
}

// NewFileWriter creates dir if needed and appends to its scalars file.
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tracking: create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ScalarsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tracking: open scalars: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileWriter{dir: dir, f: f, buf: buf, enc: json.NewEncoder(buf), now: time.Now}, nil
}

// Dir is the log directory.
func (w *FileWriter) Dir() string { return w.dir }

func (w *FileWriter) AddScalar(tag string, value float64, step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	wall := float64(w.now().UnixNano()) / 1e9
	if err := w.enc.Encode(Scalar{WallTime: wall, Step: step, Tag: tag, Value: value}); err != nil {
		return fmt.Errorf("tracking: scalar %s: %w", tag, err)
	}
	return nil
}

// AddGraph replaces the stored graph.
func (w *FileWriter) AddGraph(g graph.Directed) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	b, err := dot.Marshal(g, "model", "", "\t")
	if err != nil {
		return fmt.Errorf("tracking: encode graph: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, GraphFile), append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("tracking: write graph: %w", err)
	}
	return nil
}

func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.buf.Flush()
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	ferr := w.buf.Flush()
	cerr := w.f.Close()
	return errors.Join(ferr, cerr)
}

// ReadScalars loads every scalar recorded in dir.
func ReadScalars(dir string) ([]Scalar, error) {
	f, err := os.Open(filepath.Join(dir, ScalarsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Scalar
	dec := json.NewDecoder(f)
	for dec.More() {
		var s Scalar
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("tracking: read scalars: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
