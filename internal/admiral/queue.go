package admiral

import (
	"fmt"
	"sync"

	"github.com/danmuck/admiral/internal/arena"
	"github.com/danmuck/admiral/internal/protocol/packet"
)

// DefaultQueueCapacity matches the LIONS deployment.
const DefaultQueueCapacity = 50

const slotSize = packet.MaxPayloadSize

// Queue is a bounded FIFO of admitted messages. Payloads are copied into
// one arena slot per ring position on Enqueue and copied out again on
// Dequeue, so no caller ever holds queue memory. When the queue drains,
// the arena is cleared and a new generation begins.
type Queue struct {
	mu       sync.Mutex
	arena    *arena.Arena
	slots    []byte
	messages []Message
	size     int
	head     int
	tail     int
	ready    chan struct{}
}

// QueueStats is a point-in-time view of the queue.
type QueueStats struct {
	Len        int    `json:"len"`
	Cap        int    `json:"cap"`
	Head       int    `json:"head"`
	Tail       int    `json:"tail"`
	Generation uint64 `json:"generation"`
}

func NewQueue(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	a, err := arena.New(capacity * slotSize)
	if err != nil {
		return nil, err
	}
	slots, err := a.Push(capacity * slotSize)
	if err != nil {
		return nil, err
	}
	return &Queue{
		arena:    a,
		slots:    slots,
		messages: make([]Message, capacity),
		ready:    make(chan struct{}, 1),
	}, nil
}

// Enqueue copies msg into the queue. It returns false without blocking when
// the queue is full or the payload does not fit a slot.
func (q *Queue) Enqueue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size >= len(q.messages) || len(msg.Packet.Payload) > slotSize {
		return false
	}
	off := q.tail * slotSize
	slot := q.slots[off : off+slotSize]
	n := copy(slot, msg.Packet.Payload)
	msg.Packet.Payload = slot[:n:n]

	q.messages[q.tail] = msg
	q.tail = (q.tail + 1) % len(q.messages)
	q.size++

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Dequeue removes the oldest message. It returns false immediately when
// the queue is empty.
func (q *Queue) Dequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return Message{}, false
	}
	msg := q.messages[q.head]
	msg.Packet = msg.Packet.Clone()
	q.messages[q.head] = Message{}
	q.head = (q.head + 1) % len(q.messages)
	q.size--

	if q.size == 0 {
		q.reset()
	}
	return msg, true
}

// Ready is signalled after an enqueue. It is a wake-up hint only; consumers
// must still treat an empty Dequeue as normal.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Cap() int {
	return len(q.messages)
}

// Generation counts how many times the queue has drained.
func (q *Queue) Generation() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.arena.Generation()
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:        q.size,
		Cap:        len(q.messages),
		Head:       q.head,
		Tail:       q.tail,
		Generation: q.arena.Generation(),
	}
}

// reset reclaims all slot memory at once. Callers hold q.mu.
func (q *Queue) reset() {
	q.head = 0
	q.tail = 0
	q.arena.Clear()
	slots, err := q.arena.Push(len(q.slots))
	if err != nil {
		// The arena was sized for exactly this push at construction.
		panic(err)
	}
	q.slots = slots
}
