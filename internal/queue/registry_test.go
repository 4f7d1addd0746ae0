package queue_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jnfrati/buzon/internal/models"
	"github.com/jnfrati/buzon/internal/queue"
)

func TestRegistry_QueueExists(t *testing.T) {
	r := queue.NewRegistry()

	require.False(t, r.QueueExists("orders"))
	require.True(t, r.EnsureQueue("orders"))
	require.True(t, r.QueueExists("orders"))
	require.False(t, r.EnsureQueue("orders"))
}

func TestRegistry_UnknownQueue(t *testing.T) {
	r := queue.NewRegistry()

	start := time.Now()
	_, err := r.GetMessage("nope", 5*time.Second)
	require.ErrorIs(t, err, queue.ErrQueueNotFound)
	require.Less(t, time.Since(start), 100*time.Millisecond)

	err = r.PostMessage("nope", &models.Message{Id: "a", Body: json.RawMessage(`1`)})
	require.ErrorIs(t, err, queue.ErrQueueNotFound)
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := queue.NewRegistry()
	r.EnsureQueue("rt")

	sent, err := models.NewMessage("a", map[string]int{"x": 1})
	require.NoError(t, err)
	require.NoError(t, r.PostMessage("rt", sent))

	got, err := r.GetMessage("rt", time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a", got.Id)
	require.JSONEq(t, `{"x":1}`, string(got.Body))
}

func TestRegistry_ConcurrentEnsureCreatesOnce(t *testing.T) {
	r := queue.NewRegistry()

	const workers = 32

	var (
		mu      sync.Mutex
		created int
	)

	start := make(chan struct{})
	eg := new(errgroup.Group)
	for i := range workers {
		eg.Go(func() error {
			<-start
			if r.EnsureQueue("shared") {
				mu.Lock()
				created++
				mu.Unlock()
			}
			return r.PostMessage("shared", &models.Message{
				Id:   fmt.Sprint(i),
				Body: json.RawMessage(`true`),
			})
		})
	}
	close(start)
	require.NoError(t, eg.Wait())

	require.Equal(t, 1, created)

	for range workers {
		m, err := r.GetMessage("shared", 0)
		require.NoError(t, err)
		require.NotNil(t, m)
	}

	m, err := r.GetMessage("shared", 0)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestRegistry_QueuesAreIndependent(t *testing.T) {
	r := queue.NewRegistry()
	r.EnsureQueue("a")
	r.EnsureQueue("b")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.GetMessage("a", 300*time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	require.NoError(t, r.PostMessage("b", &models.Message{Id: "1", Body: json.RawMessage(`1`)}))
	m, err := r.GetMessage("b", time.Second)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Less(t, time.Since(start), 50*time.Millisecond)

	<-done
}

func TestRegistry_Stats(t *testing.T) {
	r := queue.NewRegistry()
	r.EnsureQueue("zeta")
	r.EnsureQueue("alpha")

	for i := range 3 {
		require.NoError(t, r.PostMessage("zeta", &models.Message{Id: fmt.Sprint(i), Body: json.RawMessage(`{}`)}))
	}

	require.Equal(t, []models.QueueStats{
		{Name: "alpha", Depth: 0},
		{Name: "zeta", Depth: 3},
	}, r.Stats())
}
