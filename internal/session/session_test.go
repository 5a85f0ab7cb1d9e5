package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/session"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func stores(t *testing.T) map[string]session.Store {
	t.Helper()
	_, client := newRedis(t)
	cached, err := session.NewCachedStore(session.NewMemoryStore(), 4)
	require.NoError(t, err)
	return map[string]session.Store{
		"memory": session.NewMemoryStore(),
		"sql":    session.NewSQLStore(store.NewInMemoryStore()),
		"redis":  session.NewFromClient(client, session.WithTTL(time.Hour)),
		"cached": cached,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Load(ctx, "919876543210")
			assert.ErrorIs(t, err, session.ErrNotFound)

			sess, err := session.LoadOrNew(ctx, st, "919876543210")
			require.NoError(t, err)
			assert.Equal(t, "919876543210", sess.ConversationID)

			sess.Step = models.StepBrowseBrand
			sess.Budget = models.Budget10To15
			sess.FilteredCars = []models.Car{{ID: 7, Brand: "Hyundai", Model: "Creta"}}
			sess.LastOptions = []string{"Hyundai", "Kia"}
			require.NoError(t, st.Save(ctx, sess))

			got, err := st.Load(ctx, "919876543210")
			require.NoError(t, err)
			assert.Equal(t, models.StepBrowseBrand, got.Step)
			assert.Equal(t, models.Budget10To15, got.Budget)
			require.Len(t, got.FilteredCars, 1)
			assert.Equal(t, "Creta", got.FilteredCars[0].Model)
			assert.Equal(t, []string{"Hyundai", "Kia"}, got.LastOptions)
			assert.False(t, got.UpdatedAt.IsZero())

			require.NoError(t, st.Delete(ctx, "919876543210"))
			_, err = st.Load(ctx, "919876543210")
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestLoadedSessionsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess := models.NewSession("c1")
			sess.Brand = "Kia"
			require.NoError(t, st.Save(ctx, sess))

			sess.Brand = "Tata"
			got, err := st.Load(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "Kia", got.Brand)

			got.Brand = "BMW"
			again, err := st.Load(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "Kia", again.Brand)
		})
	}
}

func TestRedisStoreTTLAndIndex(t *testing.T) {
	mr, client := newRedis(t)
	st := session.NewFromClient(client, session.WithTTL(time.Minute), session.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, models.NewSession("a")))
	require.NoError(t, st.Save(ctx, models.NewSession("b")))
	assert.True(t, mr.Exists("test:a"))
	assert.Equal(t, time.Minute, mr.TTL("test:a"))

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	mr.FastForward(2 * time.Minute)
	_, err = st.Load(ctx, "a")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

type countingStore struct {
	session.Store
	loads atomic.Int32
}

func (c *countingStore) Load(ctx context.Context, id string) (*models.Session, error) {
	c.loads.Add(1)
	return c.Store.Load(ctx, id)
}

func TestCachedStoreReadsThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: session.NewMemoryStore()}
	require.NoError(t, backing.Save(ctx, models.NewSession("c1")))

	cached, err := session.NewCachedStore(backing, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := cached.Load(ctx, "c1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, backing.loads.Load(), "later loads should hit the cache")

	require.NoError(t, cached.Delete(ctx, "c1"))
	_, err = cached.Load(ctx, "c1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, cached.Len())
}

func TestLocalLockerSerialisesKey(t *testing.T) {
	locker := session.NewLocalLocker()
	ctx := context.Background()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "c1", 0)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			_ = unlock(ctx)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxActive.Load())
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := session.NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "c1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "c1", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = locker.Lock(context.Background(), "other", 0)
	assert.NoError(t, err, "different keys must not contend")

	require.NoError(t, unlock(context.Background()))
	unlock2, err := locker.Lock(context.Background(), "c1", 0)
	require.NoError(t, err)
	require.NoError(t, unlock2(context.Background()))
}

func TestRedisLockerLockUnlock(t *testing.T) {
	mr, client := newRedis(t)
	locker := session.NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "c1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:c1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:c1"))
}

func TestRedisLockerContention(t *testing.T) {
	_, client := newRedis(t)
	first := session.NewRedisLocker(client, "test:")
	second := session.NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "c1", 5*time.Second)
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(timeout, "c1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	unlock2, err := second.Lock(ctx, "c1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLockerUnlockKeepsForeignLock(t *testing.T) {
	mr, client := newRedis(t)
	locker := session.NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "c1", time.Second)
	require.NoError(t, err)

	// The lock expired and someone else took it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:c1", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:c1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLoadOrNewResetsUnknownStep(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore()
	sess := models.NewSession("c9")
	sess.Step = models.Step("legacy_checkout")
	require.NoError(t, st.Save(ctx, sess))

	got, err := session.LoadOrNew(ctx, st, "c9")
	require.NoError(t, err)
	assert.Equal(t, models.StepMainMenu, got.Step)
}
