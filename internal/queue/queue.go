package queue

import (
	"errors"
	"time"

	"github.com/jnfrati/buzon/internal/models"
)

// DefaultTimeout is how long a get waits when the caller supplies no timeout.
const DefaultTimeout = 1000 * time.Millisecond

var (
	ErrQueueNotFound = errors.New("queue not found")
	ErrLockFailure   = errors.New("queue lock is poisoned")
)

// Client is what request handlers need from the registry.
type Client interface {
	EnsureQueue(name string) bool
	QueueExists(name string) bool

	PostMessage(name string, msg *models.Message) error
	GetMessage(name string, timeout time.Duration) (*models.Message, error)

	Stats() []models.QueueStats
}
