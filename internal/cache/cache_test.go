package cache

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/metasearch/internal/search"
)

func sample(link string) search.ResultSet {
	return search.ResultSet{Query: "q", Mode: search.ModeSurface, Surface: []search.Result{{Title: "t", Link: link, Source: "A"}}}
}

func TestKeyFrom_SeparatesModes(t *testing.T) {
	assert.Equal(t, KeyFrom("q", search.ModeSurface), KeyFrom("q", search.ModeSurface))
	assert.NotEqual(t, KeyFrom("q", search.ModeSurface), KeyFrom("q", search.ModeDeep))
	assert.NotEqual(t, KeyFrom("a b", search.ModeMixed), KeyFrom("a", search.Mode("b mixed")))
}

func TestGetPut_ReturnsCopies(t *testing.T) {
	c := New(4, 0)
	k := KeyFrom("q", search.ModeSurface)
	rs := sample("https://a")
	c.Put(k, rs)
	rs.Surface[0].Link = "mutated"

	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "https://a", got.Surface[0].Link)

	got.Surface[0].Link = "mutated again"
	again, _ := c.Get(k)
	assert.Equal(t, "https://a", again.Surface[0].Link)
}

func TestBoundedSize(t *testing.T) {
	c := New(2, 0)
	c.Put("a", sample("1"))
	c.Put("b", sample("2"))
	c.Put("c", sample("3"))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(4, time.Minute)
	c.now = func() time.Time { return now }
	c.Put("a", sample("1"))
	_, ok := c.Get("a")
	require.True(t, ok)

	now = now.Add(59 * time.Second)
	c.Put("b", sample("2"))
	assert.Equal(t, 2, c.Len())

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry at ttl age should expire")
	assert.Equal(t, 1, c.Len())
	require.Len(t, c.Entries(), 1)
	assert.Equal(t, "b", c.Entries()[0].Key)
}

func TestNoTTLKeepsEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(4, 0)
	c.now = func() time.Time { return now }
	c.Put("a", sample("1"))
	now = now.Add(24 * 365 * time.Hour)
	_, ok := c.Get("a")
	assert.True(t, ok)
}

// Caches with a TTL must not leave anything running once dropped.
func TestNewStartsNoGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		c := New(8, time.Minute)
		c.Put("a", sample("1"))
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before)
}

func TestDo_CachesAndSkipsSecondLoad(t *testing.T) {
	c := New(4, 0)
	var calls int32
	load := func() (search.ResultSet, bool, error) {
		atomic.AddInt32(&calls, 1)
		return sample("https://a"), true, nil
	}
	_, hit, err := c.Do("k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	rs, hit, err := c.Do("k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "https://a", rs.Surface[0].Link)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_NoStoreAndErrorAreNotCached(t *testing.T) {
	c := New(4, 0)
	_, _, err := c.Do("k", func() (search.ResultSet, bool, error) { return sample("x"), false, nil })
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	boom := errors.New("boom")
	_, _, err = c.Do("k", func() (search.ResultSet, bool, error) { return search.ResultSet{}, true, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestDo_SingleFlight(t *testing.T) {
	c := New(4, 0)
	var calls int32
	release := make(chan struct{})
	load := func() (search.ResultSet, bool, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return sample("https://a"), true, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]search.ResultSet, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rs, _, err := c.Do("k", load)
			assert.NoError(t, err)
			results[i] = rs
		}(i)
	}
	// let the goroutines pile up on the flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, rs := range results {
		require.Len(t, rs.Surface, 1)
		assert.Equal(t, "https://a", rs.Surface[0].Link)
	}
	results[0].Surface[0].Link = "mutated"
	assert.Equal(t, "https://a", results[1].Surface[0].Link, "waiters must not share slices")
}

func TestEntriesAndPurge(t *testing.T) {
	c := New(4, 0)
	c.Put("a", sample("1"))
	c.Put("b", sample("2"))
	es := c.Entries()
	require.Len(t, es, 2)
	assert.Equal(t, "a", es[0].Key)
	assert.False(t, es[0].CreatedAt.IsZero())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
