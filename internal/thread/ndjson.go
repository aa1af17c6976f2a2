package thread

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"kabuten/internal/logging"
)

// MaxEntrySize is the largest NDJSON line accepted (1 MiB).
const MaxEntrySize = 1024 * 1024

// Encoder writes entries as NDJSON, one per line.
type Encoder struct {
	writer *bufio.Writer
}

// NewEncoder creates a new NDJSON encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{writer: bufio.NewWriter(w)}
}

// Encode writes one entry as a single JSON line.
func (e *Encoder) Encode(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if len(data) > MaxEntrySize {
		return fmt.Errorf("entry size %d exceeds limit %d", len(data), MaxEntrySize)
	}
	if _, err := e.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush flushes buffered output.
func (e *Encoder) Flush() error {
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// Decoder reads NDJSON entries.
type Decoder struct {
	scanner *bufio.Scanner
	lineNum int
}

// NewDecoder creates a new NDJSON decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxEntrySize)
	return &Decoder{scanner: scanner}
}

// Decode reads the next entry, skipping blank lines. Returns io.EOF at end.
func (d *Decoder) Decode(entry *Entry) error {
	for {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return fmt.Errorf("scanner error at line %d: %w", d.lineNum+1, err)
			}
			return io.EOF
		}
		d.lineNum++
		data := d.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, entry); err != nil {
			logging.Get(logging.CategoryThread).Warn("failed to unmarshal line %d: %v (data=%.100s)", d.lineNum, err, data)
			return fmt.Errorf("failed to unmarshal line %d: %w", d.lineNum, err)
		}
		return nil
	}
}

// WriteEntries encodes entries to w and flushes.
func WriteEntries(w io.Writer, entries []Entry) error {
	enc := NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return enc.Flush()
}

// ReadEntries decodes every entry in r.
func ReadEntries(r io.Reader) ([]Entry, error) {
	dec := NewDecoder(r)
	entries := []Entry{}
	for {
		var e Entry
		err := dec.Decode(&e)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}
