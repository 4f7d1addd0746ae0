package queue

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jnfrati/buzon/internal/models"
	"github.com/jnfrati/buzon/internal/storage"
)

// Registry maps queue names to queues. Names are never removed once created.
//
// The registry lock only guards the name table; it is released before any
// queue lock is taken, so traffic on one queue never blocks another.
type Registry struct {
	queues storage.Storage[string, *BlockingQueue]
}

var _ Client = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		queues: storage.NewMemoryStorage[string, *BlockingQueue](),
	}
}

// EnsureQueue creates name if it is absent and reports whether it did.
func (r *Registry) EnsureQueue(name string) bool {
	_, created := r.queues.GetOrCreate(name, func() *BlockingQueue {
		return NewBlockingQueue(name)
	})
	return created
}

func (r *Registry) QueueExists(name string) bool {
	return r.queues.Has(name)
}

func (r *Registry) lookup(name string) (*BlockingQueue, error) {
	q, err := r.queues.Get(name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrapf(ErrQueueNotFound, "queue %q", name)
	}
	return q, err
}

func (r *Registry) PostMessage(name string, msg *models.Message) error {
	q, err := r.lookup(name)
	if err != nil {
		return err
	}
	return q.Post(msg)
}

func (r *Registry) GetMessage(name string, timeout time.Duration) (*models.Message, error) {
	q, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return q.Get(timeout)
}

// Stats returns one entry per queue ordered by name.
func (r *Registry) Stats() []models.QueueStats {
	names := storage.SortedKeys(r.queues, func(a, b string) bool { return a < b })

	stats := make([]models.QueueStats, 0, len(names))
	for _, name := range names {
		q, err := r.queues.Get(name)
		if err != nil {
			continue
		}

		depth, err := q.Len()
		if err != nil {
			depth = -1
		}

		stats = append(stats, models.QueueStats{Name: name, Depth: depth})
	}

	return stats
}
