package queue

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jnfrati/buzon/internal/models"
)

// BlockingQueue is a named FIFO of messages. Post never blocks; Get waits up
// to a timeout for a message to show up.
//
// A panic raised while the queue lock is held poisons the queue: from then on
// every call fails with ErrLockFailure.
type BlockingQueue struct {
	name string

	mux      sync.Mutex
	messages []*models.Message
	posted   signal
	poisoned bool
}

func NewBlockingQueue(name string) *BlockingQueue {
	q := &BlockingQueue{
		name:   name,
		posted: newSignal(),
	}
	return q
}

func (q *BlockingQueue) Name() string {
	return q.name
}

// locked runs fn with exclusive access to the queue state.
func (q *BlockingQueue) locked(fn func()) (err error) {
	q.mux.Lock()
	defer q.mux.Unlock()

	if q.poisoned {
		return errors.Wrapf(ErrLockFailure, "queue %q", q.name)
	}

	defer func() {
		if r := recover(); r != nil {
			q.poisoned = true
			err = errors.Wrapf(ErrLockFailure, "queue %q: panic while locked: %v", q.name, r)
		}
	}()

	fn()

	return nil
}

// Post appends msg at the tail and wakes every goroutine blocked in Get.
func (q *BlockingQueue) Post(msg *models.Message) error {
	return q.locked(func() {
		q.messages = append(q.messages, msg)
		q.posted.broadcast()
	})
}

// Get removes the oldest message. On an empty queue it waits until a post
// arrives or timeout elapses, in which case it returns a nil message.
// A timeout <= 0 never waits.
func (q *BlockingQueue) Get(timeout time.Duration) (*models.Message, error) {
	msg, wake, err := q.pop()
	if err != nil || msg != nil || timeout <= 0 {
		return msg, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-wake:
			msg, wake, err = q.pop()
			if err != nil || msg != nil {
				return msg, err
			}
		case <-timer.C:
			msg, _, err = q.pop()
			return msg, err
		}
	}
}

// pop takes the head if there is one, otherwise hands back the channel that
// the next Post will close.
func (q *BlockingQueue) pop() (msg *models.Message, wake <-chan struct{}, err error) {
	err = q.locked(func() {
		if len(q.messages) == 0 {
			wake = q.posted.wait()
			return
		}

		msg = q.messages[0]
		q.messages[0] = nil
		q.messages = q.messages[1:]
	})
	return msg, wake, err
}

func (q *BlockingQueue) Len() (int, error) {
	var n int
	err := q.locked(func() {
		n = len(q.messages)
	})
	return n, err
}
