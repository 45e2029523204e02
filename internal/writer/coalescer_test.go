package writer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a FlushFunc capturing every flush it receives.
type recorder struct {
	mu      sync.Mutex
	flushes [][]string
	err     error
}

func (r *recorder) flush(partitions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	sorted := append([]string(nil), partitions...)
	r.flushes = append(r.flushes, sorted)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushes)
}

func (r *recorder) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func TestScheduleCoalescesIntoOneFlush(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, 30*time.Millisecond)
	defer c.Close()

	// A burst of mutations inside the window becomes one flush.
	c.Schedule("page:p1")
	c.Schedule("page:p1", "styles")
	c.Schedule("project")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ElementsMatch(t, []string{"page:p1", "styles", "project"}, rec.flushes[0])
	assert.False(t, c.Dirty())
}

func TestScheduleRestartsTimer(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, 50*time.Millisecond)
	defer c.Close()

	c.Schedule("page:p1")
	time.Sleep(30 * time.Millisecond)
	c.Schedule("page:p1")
	time.Sleep(30 * time.Millisecond)

	// 60ms elapsed but the second Schedule restarted the window.
	assert.Equal(t, 0, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWaitForFlushBarrier(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, time.Hour) // timer effectively never fires
	defer c.Close()

	c.Schedule("page:p1", "project")
	require.NoError(t, c.WaitForFlush())

	assert.Equal(t, 1, rec.count())
	assert.False(t, c.Dirty())

	// Nothing dirty: WaitForFlush returns immediately with no flush.
	require.NoError(t, c.WaitForFlush())
	assert.Equal(t, 1, rec.count())
}

func TestWaitForFlushPicksUpDirtDuringFlush(t *testing.T) {
	var c *Coalescer
	var once sync.Once

	rec := &recorder{}
	fn := func(partitions []string) error {
		// First flush dirties another partition mid-flight, as a
		// concurrent mutation would.
		once.Do(func() { c.Schedule("styles") })
		return rec.flush(partitions)
	}
	c = New(fn, time.Hour)
	defer c.Close()

	c.Schedule("page:p1")
	require.NoError(t, c.WaitForFlush())

	// Both the original dirt and the dirt added during the flush are on
	// disk when WaitForFlush returns.
	assert.False(t, c.Dirty())
	require.Equal(t, 2, rec.count())
	assert.Equal(t, []string{"page:p1"}, rec.flushes[0])
	assert.Equal(t, []string{"styles"}, rec.flushes[1])
}

func TestFlushErrorKeepsPartitionsDirty(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, time.Hour)
	defer c.Close()

	boom := errors.New("disk full")
	rec.setErr(boom)

	c.Schedule("page:p1")
	err := c.WaitForFlush()
	require.ErrorIs(t, err, boom)
	assert.True(t, c.Dirty(), "failed partitions stay dirty")

	// Once the disk recovers, the same dirt flushes cleanly.
	rec.setErr(nil)
	require.NoError(t, c.WaitForFlush())
	assert.False(t, c.Dirty())
	assert.Equal(t, []string{"page:p1"}, rec.flushes[0])
}

func TestBackgroundFlushErrorSurfacesToNextWaiter(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, 20*time.Millisecond)
	defer c.Close()

	boom := errors.New("disk full")
	rec.setErr(boom)

	c.Schedule("page:p1")

	// Timer-fired flush fails; the error is sticky for the next caller.
	require.Eventually(t, func() bool { return c.Dirty() }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	rec.setErr(nil)
	// Dirt is still pending, so the next barrier flushes it and the
	// prior sticky error clears on success.
	require.NoError(t, c.WaitForFlush())
	assert.False(t, c.Dirty())
}

func TestCloseRejectsFurtherScheduling(t *testing.T) {
	rec := &recorder{}
	c := New(rec.flush, time.Hour)

	c.Schedule("page:p1")
	require.NoError(t, c.Close())
	assert.Equal(t, 1, rec.count(), "close flushes outstanding dirt")

	c.Schedule("styles")
	assert.False(t, c.Dirty(), "scheduling after close is a no-op")
}

func TestDefaultDelayApplied(t *testing.T) {
	c := New(func([]string) error { return nil }, 0)
	defer c.Close()
	assert.Equal(t, DefaultDelay, c.delay)
}
