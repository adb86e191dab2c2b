package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashureev/genomics-xai/internal/domain"
)

func TestManagerGetReturnsSameWorkspace(t *testing.T) {
	m := NewManager(Deps{Generator: &fakeGen{}}, nil)
	defer m.Close()

	a := m.Get(Key{UserID: "u", SessionID: "tab-1"})
	b := m.Get(Key{UserID: "u", SessionID: "tab-1"})
	c := m.Get(Key{UserID: "u", SessionID: "tab-2"})
	require.Same(t, a, b)
	require.NotSame(t, a, c)
	require.Equal(t, 2, m.Len())

	_, ok := m.Lookup(Key{UserID: "other", SessionID: "tab-1"})
	require.False(t, ok)
}

func TestManagerSweepEvictsIdle(t *testing.T) {
	var (
		mu      sync.Mutex
		evicted []Key
	)
	m := NewManager(Deps{Generator: &fakeGen{}}, func(key Key) {
		mu.Lock()
		evicted = append(evicted, key)
		mu.Unlock()
	})
	defer m.Close()

	key := Key{UserID: "u", SessionID: "s"}
	ws := m.Get(key)

	require.Equal(t, 0, m.Sweep(time.Hour))
	require.Equal(t, 1, m.Len())

	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, m.Sweep(time.Millisecond))
	require.Equal(t, 0, m.Len())

	mu.Lock()
	require.Equal(t, []Key{key}, evicted)
	mu.Unlock()

	_, err := ws.EnterDashboard(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	fresh := m.Get(key)
	require.NotSame(t, ws, fresh)
	require.Equal(t, domain.ViewLanding, fresh.Snapshot().View)
}

func TestManagerSweeperStopsWithContext(t *testing.T) {
	evicted := make(chan Key, 1)
	m := NewManager(Deps{Generator: &fakeGen{}}, func(key Key) { evicted <- key })
	defer m.Close()

	m.Get(Key{UserID: "u", SessionID: "s"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartSweeper(ctx, time.Millisecond, 5*time.Millisecond)

	select {
	case key := <-evicted:
		require.Equal(t, "u", key.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never evicted the idle workspace")
	}
}

func TestManagerRemove(t *testing.T) {
	m := NewManager(Deps{Generator: &fakeGen{}}, nil)
	key := Key{UserID: "u", SessionID: "s"}
	ws := m.Get(key)

	m.Remove(key)
	require.Equal(t, 0, m.Len())
	_, err := ws.LeaveDashboard()
	require.ErrorIs(t, err, ErrClosed)
}
