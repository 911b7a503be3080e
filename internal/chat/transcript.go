package chat

import "sync"

const DefaultTranscriptLimit = 100

// Transcript is an ordered, bounded list of messages. When the bound is
// exceeded the oldest non-pending messages go first; pending confirmations
// are never evicted, so the list may sit above the limit while they wait.
type Transcript struct {
	mu       sync.RWMutex
	limit    int
	messages []Message
}

func NewTranscript(limit int) *Transcript {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &Transcript{limit: limit}
}

func (t *Transcript) Limit() int {
	return t.limit
}

// Append adds msg and returns the ids evicted to stay within the limit.
func (t *Transcript) Append(msg Message) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msg)
	return t.evictLocked()
}

func (t *Transcript) evictLocked() []string {
	var evicted []string
	excess := len(t.messages) - t.limit
	if excess <= 0 {
		return nil
	}

	// The newest message always stays.
	last := len(t.messages) - 1
	kept := t.messages[:0:0]
	for i, m := range t.messages {
		if excess > 0 && i < last && !m.Pending() {
			evicted = append(evicted, m.ID)
			excess--
			continue
		}
		kept = append(kept, m)
	}
	t.messages = kept
	return evicted
}

// SetStatus updates the confirmation message carrying confirmationID.
// It returns the updated copy, or false if no such message remains.
func (t *Transcript) SetStatus(confirmationID string, status ConfirmationStatus) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		m := &t.messages[i]
		if m.Type == TypeConfirmation && m.ConfirmationID == confirmationID {
			m.Status = status
			return *m, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

// Recent returns up to n of the newest messages in order. n <= 0 means all.
func (t *Transcript) Recent(n int) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	start := 0
	if n > 0 && len(t.messages) > n {
		start = len(t.messages) - n
	}
	return append([]Message(nil), t.messages[start:]...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}
