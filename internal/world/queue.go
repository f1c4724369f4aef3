package world

import (
	"github.com/elliotchance/orderedmap/v2"
)

// BuildQueue is a bounded ordered set of chunk coordinates awaiting mesh
// rebuild. A coordinate appears at most once; pushing a queued coordinate is a
// no-op, so repeated writes to a column collapse into one pending rebuild.
type BuildQueue struct {
	pending *orderedmap.OrderedMap[ChunkPos, struct{}]
	max     int
}

// NewBuildQueue creates a queue holding at most max coordinates.
func NewBuildQueue(max int) *BuildQueue {
	return &BuildQueue{
		pending: orderedmap.NewOrderedMap[ChunkPos, struct{}](),
		max:     max,
	}
}

// Push enqueues pos unless it is already pending or the queue is full.
func (q *BuildQueue) Push(pos ChunkPos) {
	if _, ok := q.pending.Get(pos); ok {
		return
	}
	if q.pending.Len() >= q.max {
		return
	}
	q.pending.Set(pos, struct{}{})
}

// Pop removes and returns the oldest pending coordinate.
func (q *BuildQueue) Pop() (ChunkPos, bool) {
	el := q.pending.Front()
	if el == nil {
		return ChunkPos{}, false
	}
	q.pending.Delete(el.Key)
	return el.Key, true
}

// Contains reports whether pos is pending.
func (q *BuildQueue) Contains(pos ChunkPos) bool {
	_, ok := q.pending.Get(pos)
	return ok
}

// Len returns the number of pending coordinates.
func (q *BuildQueue) Len() int { return q.pending.Len() }
