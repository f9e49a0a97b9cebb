// Package trace streams run progress to JSONL files and reads them back for
// replay. One file per run: a header record, one record per committed log
// entry or tool record, and a footer with the terminal state.
package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/switchboard-ai/switchboard/internal/engine"
)

// Record types in a trace file.
const (
	RecordHeader = "header"
	RecordEntry  = "entry"
	RecordTool   = "tool"
	RecordFooter = "footer"
)

// Record is one JSONL line. RecordType selects which optional fields are
// populated.
type Record struct {
	RecordType string    `json:"record_type"`
	Seq        uint64    `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`

	// header
	RunID   string `json:"run_id,omitempty"`
	Network string `json:"network,omitempty"`
	Input   string `json:"input,omitempty"`

	// entry / tool
	Entry  *engine.LogEntry   `json:"entry,omitempty"`
	Record *engine.ToolRecord `json:"tool_record,omitempty"`

	// footer
	State        string `json:"state,omitempty"`
	FinalPayload string `json:"final_payload,omitempty"`
	Steps        int    `json:"steps,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Writer appends records to a trace file as a run progresses. Every record
// is flushed on write so a follower tailing the file sees steps live.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	seq  uint64
	path string
}

// NewWriter creates the trace file, making parent directories as needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	return &Writer{f: f, path: path}, nil
}

// Path returns the trace file location.
func (w *Writer) Path() string { return w.path }

// RunStart writes the header record.
func (w *Writer) RunStart(runID, network, input string) error {
	return w.write(Record{RecordType: RecordHeader, RunID: runID, Network: network, Input: input})
}

// Entry writes one execution log entry.
func (w *Writer) Entry(e engine.LogEntry) error {
	return w.write(Record{RecordType: RecordEntry, Entry: &e})
}

// ToolRecord writes one full tool record.
func (w *Writer) ToolRecord(r engine.ToolRecord) error {
	return w.write(Record{RecordType: RecordTool, Record: &r})
}

// RunEnd writes the footer from the run result.
func (w *Writer) RunEnd(res *engine.RunResult) error {
	return w.write(Record{
		RecordType:   RecordFooter,
		State:        string(res.State),
		FinalPayload: res.FinalPayload,
		Steps:        res.Steps,
		Error:        res.Error,
	})
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func (w *Writer) write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	rec.Seq = w.seq
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trace record: %w", err)
	}
	if _, err := w.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write trace record: %w", err)
	}
	return w.f.Sync()
}

// Trace is a fully loaded trace file.
type Trace struct {
	RunID   string
	Network string
	Input   string

	Entries []engine.LogEntry
	Records []engine.ToolRecord

	// Footer fields; zero-valued while the run is still in progress.
	State        string
	FinalPayload string
	Steps        int
	Error        string
	Finished     bool
}

// Load reads a trace file. A missing footer is not an error: the file may
// belong to a run still in progress, or one that crashed mid-flight.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	tr := &Trace{}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if perr := tr.apply(bytes.TrimSpace(line)); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
	}
	return tr, nil
}

func (t *Trace) apply(line []byte) error {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Errorf("parse trace record: %w", err)
	}
	switch rec.RecordType {
	case RecordHeader:
		t.RunID = rec.RunID
		t.Network = rec.Network
		t.Input = rec.Input
	case RecordEntry:
		if rec.Entry != nil {
			t.Entries = append(t.Entries, *rec.Entry)
		}
	case RecordTool:
		if rec.Record != nil {
			t.Records = append(t.Records, *rec.Record)
		}
	case RecordFooter:
		t.State = rec.State
		t.FinalPayload = rec.FinalPayload
		t.Steps = rec.Steps
		t.Error = rec.Error
		t.Finished = true
	default:
		return fmt.Errorf("unknown trace record type %q", rec.RecordType)
	}
	return nil
}

// ToolRecord returns the full record for an execution id, if present.
func (t *Trace) ToolRecord(executionID string) (engine.ToolRecord, bool) {
	for _, r := range t.Records {
		if r.ExecutionID == executionID {
			return r, true
		}
	}
	return engine.ToolRecord{}, false
}
