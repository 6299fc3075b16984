package transcript

import (
	"strings"
	"sync"
	"time"

	"peerprep/interview/internal/models"
)

// JoinMode controls how consecutive fragments for one role are combined.
type JoinMode int

const (
	// JoinSpaced inserts a single space between fragments.
	JoinSpaced JoinMode = iota
	// JoinRaw concatenates fragments as-is, for streams whose deltas carry their own spacing.
	JoinRaw
)

// Buffer assembles streamed fragments into committed messages.
// One mutex serializes every mutation, so fragments for the same role are
// appended in arrival order and a flush always sees a complete buffer.
type Buffer struct {
	mu       sync.Mutex
	messages []models.Message
	pending  map[models.Role]*strings.Builder
	join     map[models.Role]JoinMode
	now      func() time.Time
	onCommit func(models.Message)
}

type Option func(*Buffer)

func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

func WithJoinMode(role models.Role, mode JoinMode) Option {
	return func(b *Buffer) { b.join[role] = mode }
}

// WithCommitHook registers fn to observe each committed message.
// fn runs after the buffer lock is released.
func WithCommitHook(fn func(models.Message)) Option {
	return func(b *Buffer) { b.onCommit = fn }
}

func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		pending: map[models.Role]*strings.Builder{
			models.RoleInterviewer: {},
			models.RoleCandidate:   {},
		},
		join: map[models.Role]JoinMode{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds fragment to the open pending buffer for role.
func (b *Buffer) Append(role models.Role, fragment string) {
	if fragment == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.pendingFor(role)
	if buf.Len() > 0 && b.join[role] == JoinSpaced {
		buf.WriteByte(' ')
	}
	buf.WriteString(fragment)
}

// Flush commits the trimmed pending text for role as a message.
// It reports false when there was nothing to commit.
func (b *Buffer) Flush(role models.Role) (models.Message, bool) {
	b.mu.Lock()
	buf := b.pendingFor(role)
	content := strings.TrimSpace(buf.String())
	buf.Reset()
	if content == "" {
		b.mu.Unlock()
		return models.Message{}, false
	}
	msg := b.commitLocked(role, content)
	b.mu.Unlock()

	b.notify(msg)
	return msg, true
}

// Discard clears the pending text for role without committing it.
func (b *Buffer) Discard(role models.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingFor(role).Reset()
}

// Replace drops the pending text for role and commits canonical in its place.
// A blank canonical text only discards, and Replace reports false.
func (b *Buffer) Replace(role models.Role, canonical string) (models.Message, bool) {
	canonical = strings.TrimSpace(canonical)

	b.mu.Lock()
	b.pendingFor(role).Reset()
	if canonical == "" {
		b.mu.Unlock()
		return models.Message{}, false
	}
	msg := b.commitLocked(role, canonical)
	b.mu.Unlock()

	b.notify(msg)
	return msg, true
}

// Add commits content directly, leaving pending text untouched.
func (b *Buffer) Add(role models.Role, content string) models.Message {
	b.mu.Lock()
	msg := b.commitLocked(role, content)
	b.mu.Unlock()

	b.notify(msg)
	return msg
}

func (b *Buffer) Pending(role models.Role) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingFor(role).String()
}

func (b *Buffer) HasPending(role models.Role) bool {
	return strings.TrimSpace(b.Pending(role)) != ""
}

// Messages returns a copy of the committed transcript.
func (b *Buffer) Messages() []models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Message(nil), b.messages...)
}

// Snapshot returns committed messages and pending text taken under one lock.
func (b *Buffer) Snapshot() models.TranscriptSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make(map[models.Role]string, len(b.pending))
	for role, buf := range b.pending {
		pending[role] = buf.String()
	}
	return models.TranscriptSnapshot{
		Messages: append([]models.Message{}, b.messages...),
		Pending:  pending,
	}
}

// Reset empties the transcript and every pending buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = nil
	for _, buf := range b.pending {
		buf.Reset()
	}
}

func (b *Buffer) pendingFor(role models.Role) *strings.Builder {
	buf, ok := b.pending[role]
	if !ok {
		buf = &strings.Builder{}
		b.pending[role] = buf
	}
	return buf
}

func (b *Buffer) commitLocked(role models.Role, content string) models.Message {
	ts := b.now()
	// keep timestamps monotonic even if the clock steps backwards
	if n := len(b.messages); n > 0 && ts.Before(b.messages[n-1].Timestamp) {
		ts = b.messages[n-1].Timestamp
	}
	msg := models.Message{Role: role, Content: content, Timestamp: ts}
	b.messages = append(b.messages, msg)
	return msg
}

func (b *Buffer) notify(msg models.Message) {
	if b.onCommit != nil {
		b.onCommit(msg)
	}
}
