// Package replay records raw frames and transmits them again, keeping
// Logitech receivers awake while doing so.
package replay

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map"
)

// Queue holds recorded frames in arrival order.
type Queue struct {
	mu     sync.Mutex
	frames [][]byte
}

// Append stores a copy of frame.
func (q *Queue) Append(frame []byte) {
	q.mu.Lock()
	q.frames = append(q.frames, append([]byte{}, frame...))
	q.mu.Unlock()
}

// Frames returns the recorded frames. The outer slice is a copy.
func (q *Queue) Frames() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]byte{}, q.frames...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *Queue) Reset() {
	q.mu.Lock()
	q.frames = nil
	q.mu.Unlock()
}

// Dedup drops repeated frames (ESB retransmissions), keeping the first
// occurrence of each frame content in order.
func Dedup(frames [][]byte) [][]byte {
	seen := orderedmap.New()
	for _, f := range frames {
		k := string(f)
		if _, present := seen.Get(k); !present {
			seen.Set(k, f)
		}
	}

	res := make([][]byte, 0, seen.Len())
	for pair := seen.Oldest(); pair != nil; pair = pair.Next() {
		res = append(res, pair.Value.([]byte))
	}
	return res
}
