// Package thread holds a sector's append-only interaction log: sweep records,
// inbound messages from OC and the sector lead's replies. Only Load replaces
// the sequence; nothing edits or removes an appended entry.
package thread

import (
	"sync"
	"time"

	"kabuten/internal/perception"
	"kabuten/internal/types"
)

// EntryType is the wire tag of an entry.
type EntryType string

const (
	TypeSweep   EntryType = "sweep"
	TypeInbound EntryType = "oc_message"
	TypeReply   EntryType = "agent_response"

	// TypeLegacyInbound is an older inbound tag still found in stored threads.
	TypeLegacyInbound EntryType = "pm_message"
)

// Entry roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one thread record. Sweep entries carry Findings and Synthesis;
// message entries carry Content.
type Entry struct {
	Role      string                  `json:"role"`
	Type      EntryType               `json:"type"`
	Timestamp string                  `json:"timestamp"`
	Content   string                  `json:"content,omitempty"`
	Findings  []types.FindingSummary  `json:"findings,omitempty"`
	Synthesis *types.SynthesisSummary `json:"synthesis,omitempty"`
}

// IsInbound reports whether e is a message from OC.
func (e Entry) IsInbound() bool {
	return e.Type == TypeInbound || e.Type == TypeLegacyInbound
}

// IsReply reports whether e is a sector lead reply.
func (e Entry) IsReply() bool {
	return e.Type == TypeReply
}

func (e Entry) clone() Entry {
	if e.Findings != nil {
		e.Findings = append(make([]types.FindingSummary, 0, len(e.Findings)), e.Findings...)
	}
	if e.Synthesis != nil {
		s := *e.Synthesis
		e.Synthesis = &s
	}
	return e
}

// FormatTimestamp renders t the way entries store it: RFC 3339, UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewSweepEntry builds the record appended after a completed sweep.
func NewSweepEntry(at time.Time, findings []types.Finding, synthesis types.SynthesisSummary) Entry {
	return Entry{
		Role:      RoleSystem,
		Type:      TypeSweep,
		Timestamp: FormatTimestamp(at),
		Findings:  types.Summaries(findings),
		Synthesis: &synthesis,
	}
}

// NewInboundEntry builds the record of a message from OC.
func NewInboundEntry(at time.Time, message string) Entry {
	return Entry{Role: RoleUser, Type: TypeInbound, Timestamp: FormatTimestamp(at), Content: message}
}

// NewReplyEntry builds the record of a sector lead reply.
func NewReplyEntry(at time.Time, reply string) Entry {
	return Entry{Role: RoleAssistant, Type: TypeReply, Timestamp: FormatTimestamp(at), Content: reply}
}

// Thread is a concurrency-safe, append-only entry sequence.
type Thread struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty thread.
func New() *Thread {
	return &Thread{}
}

// Append adds e at the end.
func (t *Thread) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e.clone())
}

// Load replaces the whole sequence with a copy of entries.
func (t *Thread) Load(entries []Entry) {
	cp := make([]Entry, len(entries))
	for i, e := range entries {
		cp[i] = e.clone()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = cp
}

// Export returns a copy of the sequence, never nil.
func (t *Thread) Export() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// LastSweep returns the most recent sweep entry.
func (t *Thread) LastSweep() (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Type == TypeSweep {
			return t.entries[i].clone(), true
		}
	}
	return Entry{}, false
}

// ChatTurns projects the last window entries into conversation turns:
// inbound messages become user turns, replies become assistant turns, and
// everything else is dropped. Order is preserved.
func (t *Thread) ChatTurns(window int) []perception.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tail := t.entries
	if window >= 0 && len(tail) > window {
		tail = tail[len(tail)-window:]
	}

	turns := make([]perception.Turn, 0, len(tail))
	for _, e := range tail {
		switch {
		case e.IsInbound():
			turns = append(turns, perception.Turn{Role: perception.RoleUser, Content: e.Content})
		case e.IsReply():
			turns = append(turns, perception.Turn{Role: perception.RoleAssistant, Content: e.Content})
		}
	}
	return turns
}
