package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	now atomic.Uint32
}

func (m *manualTimer) Now() uint32 {
	return m.now.Load()
}

func TestAppendAndGet(t *testing.T) {
	store := NewStore(Config{TTL: time.Hour})

	_, err := store.Append("+15550001", RoleUser, "list products")
	require.NoError(t, err)
	history, err := store.Append("+15550001", RoleAssistant, "product_id: 1")
	require.NoError(t, err)
	require.Len(t, history.Turns, 2)

	got, ok, err := store.Get("+15550001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "+15550001", got.ID)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, RoleUser, got.Turns[0].Role)
	assert.Equal(t, "list products", got.Turns[0].Text)
	assert.Equal(t, RoleAssistant, got.Turns[1].Role)
	assert.Equal(t, int64(1), store.Len())
}

func TestGetUnknownSession(t *testing.T) {
	store := NewStore(Config{})
	history, ok, err := store.Get("nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, history.Turns)
}

func TestAppendRequiresID(t *testing.T) {
	store := NewStore(Config{})
	_, err := store.Append("  ", RoleUser, "hi")
	assert.ErrorIs(t, err, ErrSessionIDRequired)
}

func TestAppendKeepsLastTurns(t *testing.T) {
	store := NewStore(Config{MaxTurns: 3})
	for i := 0; i < 5; i++ {
		_, err := store.Append("s", RoleUser, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}
	history, _, err := store.Get("s")
	require.NoError(t, err)
	require.Len(t, history.Turns, 3)
	assert.Equal(t, "turn 2", history.Turns[0].Text)
	assert.Equal(t, "turn 4", history.Turns[2].Text)
}

func TestSessionExpires(t *testing.T) {
	timer := &manualTimer{}
	timer.now.Store(1000)
	store := newStore(Config{TTL: 30 * time.Second}, timer)

	_, err := store.Append("s", RoleUser, "hello")
	require.NoError(t, err)

	timer.now.Store(1020)
	_, ok, err := store.Get("s")
	require.NoError(t, err)
	assert.True(t, ok)

	timer.now.Store(1031)
	_, ok, err = store.Get("s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	store := NewStore(Config{})
	_, err := store.Append("s", RoleUser, "hello")
	require.NoError(t, err)
	store.Reset("s")
	_, ok, err := store.Get("s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore(Config{MaxTurns: 100})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append("shared", RoleUser, fmt.Sprintf("%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	history, _, err := store.Get("shared")
	require.NoError(t, err)
	assert.Len(t, history.Turns, 20)
}
