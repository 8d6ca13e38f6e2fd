package mqtt

// outbound is a serialized message waiting for the broker.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog queues messages published while the broker is unreachable. When
// full it evicts the oldest non-retained message, or the oldest message if
// all are retained, so lifecycle announcements outlive position updates.
// Not safe for concurrent use; the caller synchronizes.
type backlog struct {
	msgs    []outbound
	limit   int
	dropped int // evictions since the last take
}

func newBacklog(limit int) *backlog {
	if limit < 1 {
		limit = 1
	}
	return &backlog{msgs: make([]outbound, 0, limit), limit: limit}
}

// add queues m and reports whether an older message was evicted for it.
func (b *backlog) add(m outbound) bool {
	evicted := false
	if len(b.msgs) == b.limit {
		victim := 0
		for i, q := range b.msgs {
			if !q.retained {
				victim = i
				break
			}
		}
		b.msgs = append(b.msgs[:victim], b.msgs[victim+1:]...)
		b.dropped++
		evicted = true
	}
	b.msgs = append(b.msgs, m)
	return evicted
}

// take empties the backlog, returning its messages oldest first and the
// number evicted since the previous take.
func (b *backlog) take() ([]outbound, int) {
	dropped := b.dropped
	b.dropped = 0
	if len(b.msgs) == 0 {
		return nil, dropped
	}
	msgs := b.msgs
	b.msgs = make([]outbound, 0, b.limit)
	return msgs, dropped
}

func (b *backlog) len() int {
	return len(b.msgs)
}
