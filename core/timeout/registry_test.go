package timeout_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-core/core/timeout"
	"github.com/momentics/hioload-core/fake"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newRegistry() (*timeout.Registry[string], *fake.Clock) {
	clk := fake.NewClock(epoch)
	return timeout.NewRegistry[string](timeout.WithClock(clk)), clk
}

func TestReinsertKeepsSingleEntryAtLatestExpiry(t *testing.T) {
	r, clk := newRegistry()

	assert.False(t, r.Insert("conn", 10*time.Millisecond))
	assert.True(t, r.Insert("conn", 30*time.Millisecond))
	assert.Equal(t, 1, r.Len())

	at, ok := r.Expiry("conn")
	require.True(t, ok)
	assert.Equal(t, epoch.Add(30*time.Millisecond), at)

	clk.Advance(20 * time.Millisecond)
	assert.Empty(t, r.Poll())
	assert.True(t, r.Contains("conn"))

	clk.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"conn"}, r.Poll())
	assert.Empty(t, r.Poll())
	assert.Equal(t, 0, r.Len())
}

func TestEarlyPollLeavesEntriesIntact(t *testing.T) {
	r, _ := newRegistry()
	r.Insert("a", time.Second)
	r.Insert("b", 2*time.Second)

	assert.Empty(t, r.Poll())
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains("a"))
	assert.True(t, r.Contains("b"))

	next, ok := r.NextExpiry()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Second), next)
}

func TestPollReturnsExpiryOrderAndGroupsTies(t *testing.T) {
	r, clk := newRegistry()
	r.Insert("late", 30*time.Millisecond)
	r.Insert("tie1", 10*time.Millisecond)
	r.Insert("tie2", 10*time.Millisecond)
	r.Insert("mid", 20*time.Millisecond)
	r.Insert("future", time.Hour)

	clk.Advance(30 * time.Millisecond)
	got := r.Poll()
	require.Len(t, got, 4)
	assert.ElementsMatch(t, []string{"tie1", "tie2"}, got[:2])
	assert.Equal(t, []string{"mid", "late"}, got[2:])
	assert.Equal(t, 1, r.Len())
}

func TestNonPositiveDurationIsImmediatelyDue(t *testing.T) {
	r, _ := newRegistry()
	r.Insert("zero", 0)
	r.Insert("neg", -time.Second)
	assert.ElementsMatch(t, []string{"zero", "neg"}, r.Poll())
}

func TestEraseAndPollAt(t *testing.T) {
	r, _ := newRegistry()
	r.InsertAt("a", epoch.Add(5*time.Second))
	r.InsertAt("b", epoch.Add(5*time.Second))

	assert.True(t, r.Erase("a"))
	assert.False(t, r.Erase("a"))
	assert.False(t, r.Contains("a"))

	_, ok := r.Expiry("a")
	assert.False(t, ok)

	assert.Empty(t, r.PollAt(epoch.Add(4*time.Second)))
	assert.Equal(t, []string{"b"}, r.PollAt(epoch.Add(5*time.Second)))

	_, ok = r.NextExpiry()
	assert.False(t, ok)
}

func TestEraseLastInBucketKeepsOrder(t *testing.T) {
	r, clk := newRegistry()
	for i, v := range []string{"a", "b", "c", "d", "e"} {
		r.Insert(v, time.Duration(i+1)*time.Millisecond)
	}
	r.Erase("c")
	r.Erase("a")

	clk.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"b", "d", "e"}, r.Poll())
}
