// Property-based tests for per-session serialisation.
package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// tableSize returns the number of keys currently held or waited on.
func tableSize(l *ChatLock) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// TestReadModifyWriteSafetyProperty checks that concurrent read-modify-write
// cycles on one session key behave like sequential execution.
func TestReadModifyWriteSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		key := fmt.Sprintf("wcg:%d", rapid.Int64Range(-1000000, 1000000).Draw(t, "chatID"))

		cl := NewChatLock()
		words := make([]string, 0, numOps)

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func(i int) {
				defer wg.Done()
				cl.Lock(key)
				defer cl.Unlock(key)
				snapshot := append([]string(nil), words...)
				snapshot = append(snapshot, fmt.Sprintf("w%d", i))
				words = snapshot
			}(i)
		}
		wg.Wait()

		if len(words) != numOps {
			t.Fatalf("lost updates: expected %d words, got %d", numOps, len(words))
		}
		if n := tableSize(cl); n != 0 {
			t.Fatalf("expected lock table to be empty, got %d entries", n)
		}
	})
}

// TestWithLockContextSerialisesProperty tests that WithLockContext runs one
// turn update at a time.
func TestWithLockContextSerialisesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		key := rapid.StringMatching(`(ttt|wcg):-?[0-9]{1,9}`).Draw(t, "key")

		cl := NewChatLock()
		turn := 0
		players := rapid.IntRange(1, 20).Draw(t, "players")

		var wg sync.WaitGroup
		var failed atomic.Int32
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				err := cl.WithLockContext(context.Background(), key, 5*time.Second, func() error {
					turn = (turn + 1) % players
					return nil
				})
				if err != nil {
					failed.Add(1)
				}
			}()
		}
		wg.Wait()

		if failed.Load() != 0 {
			t.Fatalf("%d updates timed out", failed.Load())
		}
		if turn != numOps%players {
			t.Fatalf("turn mismatch: expected %d, got %d", numOps%players, turn)
		}
	})
}

// TestIndependentKeysProperty tests that different chats never share a lock.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(2, 10).Draw(t, "numChats")

		cl := NewChatLock()
		for i := 0; i < numChats; i++ {
			if !cl.LockWithTimeout(context.Background(), fmt.Sprintf("ttt:%d", i), 100*time.Millisecond) {
				t.Fatalf("chat %d should be lockable while other chats are held", i)
			}
		}
		if n := tableSize(cl); n != numChats {
			t.Fatalf("expected %d held keys, got %d", numChats, n)
		}
		for i := 0; i < numChats; i++ {
			cl.Unlock(fmt.Sprintf("ttt:%d", i))
		}
		if n := tableSize(cl); n != 0 {
			t.Fatalf("expected empty lock table, got %d", n)
		}
	})
}

// TestSingleHolderProperty tests that only one contender holds a key at a time.
func TestSingleHolderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := fmt.Sprintf("wcg:%d", rapid.Int64Range(1, 1000000).Draw(t, "chatID"))
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		cl := NewChatLock()
		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		start := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				_ = cl.WithLockContext(context.Background(), key, 5*time.Second, func() error {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					return nil
				})
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() != 1 {
			t.Fatalf("expected exactly one holder at a time, saw %d", maxHolders.Load())
		}
		if n := tableSize(cl); n != 0 {
			t.Fatalf("expected empty lock table, got %d", n)
		}
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	cl := NewChatLock()
	cl.Lock("ttt:1")

	err := cl.WithLockContext(context.Background(), "ttt:1", 20*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	cl.Unlock("ttt:1")
	require.Eventually(t, func() bool { return tableSize(cl) == 0 }, time.Second, 5*time.Millisecond)

	ran := false
	err = cl.WithLockContext(context.Background(), "ttt:1", time.Second, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithLockContext_CancelledContext(t *testing.T) {
	cl := NewChatLock()
	cl.Lock("wcg:1")
	defer cl.Unlock("wcg:1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cl.WithLockContext(ctx, "wcg:1", time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlock_UnknownKey(t *testing.T) {
	cl := NewChatLock()
	cl.Unlock("ttt:404")
	assert.Equal(t, 0, tableSize(cl))
}
