// Package events carries "submission created" notifications from the form
// to any view that caches the submission list.
package events

import (
	"sync"

	"textsubmission/app/models"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 8

// Bus fans out created submissions to every subscriber. Publish never
// blocks: when a subscriber's queue is full its oldest pending event is
// dropped.
type Bus struct {
	lock   sync.Mutex
	subs   map[int]chan models.Submission
	nextID int
	buffer int
}

func NewBus() *Bus {
	return NewBufferedBus(DefaultBuffer)
}

// NewBufferedBus returns a bus whose subscribers queue up to size events.
func NewBufferedBus(size int) *Bus {
	if size < 1 {
		size = 1
	}
	return &Bus{
		subs:   map[int]chan models.Submission{},
		buffer: size,
	}
}

// Subscribe returns a stream of created submissions and a function that
// ends the subscription and closes the stream.
func (bus *Bus) Subscribe() (<-chan models.Submission, func()) {
	bus.lock.Lock()
	defer bus.lock.Unlock()

	id := bus.nextID
	bus.nextID++
	ch := make(chan models.Submission, bus.buffer)
	bus.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			bus.lock.Lock()
			defer bus.lock.Unlock()
			delete(bus.subs, id)
			close(ch)
		})
	}
}

// Publish notifies all subscribers that submission was created.
func (bus *Bus) Publish(submission models.Submission) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	for _, sub := range bus.subs {
		for {
			select {
			case sub <- submission:
			default:
				// queue full, drop the oldest and retry
				select {
				case <-sub:
				default:
				}
				continue
			}
			break
		}
	}
}
