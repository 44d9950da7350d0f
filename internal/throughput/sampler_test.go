package throughput

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Listener that remembers every value it receives.
type recorder struct {
	mu     sync.Mutex
	values []uint64
}

func (r *recorder) OnThroughputSample(value uint64) {
	r.mu.Lock()
	r.values = append(r.values, value)
	r.mu.Unlock()
}

func (r *recorder) Values() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.values...)
}

func newTestSampler() (*Sampler, *recorder, *clock.Mock) {
	mock := clock.NewMock()
	r := &recorder{}
	return NewSampler(r, WithClock(mock)), r, mock
}

func TestTotalOfValuesEachSecond(t *testing.T) {
	s, r, mock := newTestSampler()

	for _, v := range []uint64{100, 200, 300, 400, 500} {
		s.Record(v)
	}
	assert.Empty(t, r.Values())
	assert.EqualValues(t, 1500, s.Accumulated())

	mock.Add(1000 * time.Millisecond)
	s.Record(100)

	assert.Equal(t, []uint64{1600}, r.Values())
	assert.Zero(t, s.Accumulated())
}

func TestNoEmissionWithoutTimeAdvance(t *testing.T) {
	s, r, _ := newTestSampler()

	var sum uint64
	for i := uint64(0); i < 10000; i++ {
		s.Record(i)
		sum += i
	}

	assert.Empty(t, r.Values())
	assert.Equal(t, sum, s.Accumulated())
}

func TestNoEmissionBeforeFullWindow(t *testing.T) {
	s, r, mock := newTestSampler()

	s.Record(10)
	mock.Add(999 * time.Millisecond)
	s.Record(20)
	assert.Empty(t, r.Values())

	mock.Add(time.Millisecond)
	s.Record(30)
	assert.Equal(t, []uint64{60}, r.Values())
}

func TestResetAfterEmission(t *testing.T) {
	s, r, mock := newTestSampler()

	s.Record(500)
	mock.Add(time.Second)
	s.Record(500)
	require.Equal(t, []uint64{1000}, r.Values())

	// Same instant as the emission: the new window has only just begun.
	s.Record(7)
	mock.Add(500 * time.Millisecond)
	s.Record(8)
	assert.Len(t, r.Values(), 1)

	mock.Add(500 * time.Millisecond)
	s.Record(9)
	assert.Equal(t, []uint64{1000, 24}, r.Values())
}

func TestLongGapEmitsOnce(t *testing.T) {
	s, r, mock := newTestSampler()

	s.Record(1)
	mock.Add(10 * time.Second)
	s.Record(2)
	s.Record(3)

	assert.Equal(t, []uint64{3}, r.Values())
	assert.EqualValues(t, 3, s.Accumulated())
}

func TestZeroAmountTriggersEmission(t *testing.T) {
	s, r, mock := newTestSampler()

	s.Record(42)
	mock.Add(time.Second)
	s.Record(0)

	assert.Equal(t, []uint64{42}, r.Values())
}

func TestIdleSamplerNeverEmits(t *testing.T) {
	s, r, mock := newTestSampler()

	s.Record(42)
	mock.Add(time.Hour)

	assert.Empty(t, r.Values())
	assert.EqualValues(t, 42, s.Accumulated())
}

func TestClockRegressionDoesNotEmit(t *testing.T) {
	s, r, mock := newTestSampler()

	mock.Add(-5 * time.Second)
	s.Record(1)
	assert.Empty(t, r.Values())

	// Once the clock is a full window past the original start, the window
	// closes as usual.
	mock.Add(6 * time.Second)
	s.Record(1)
	assert.Equal(t, []uint64{2}, r.Values())
}

func TestListenerPanicPropagates(t *testing.T) {
	mock := clock.NewMock()
	s := NewSampler(ListenerFunc(func(uint64) { panic("listener fault") }), WithClock(mock))

	s.Record(1)
	mock.Add(time.Second)
	assert.PanicsWithValue(t, "listener fault", func() { s.Record(1) })

	// The window was reset before the listener ran.
	assert.Zero(t, s.Accumulated())
}

func TestConcurrentRecordLosesNothing(t *testing.T) {
	s, r, mock := newTestSampler()

	const workers, calls = 8, 1000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				s.Record(3)
			}
		}()
	}
	wg.Wait()

	mock.Add(time.Second)
	s.Record(0)
	assert.Equal(t, []uint64{workers * calls * 3}, r.Values())
}

func TestNilListenerPanics(t *testing.T) {
	assert.Panics(t, func() { NewSampler(nil) })
}

func TestDefaultClockStartsOpenWindow(t *testing.T) {
	r := &recorder{}
	s := NewSampler(r)
	s.Record(5)
	assert.Empty(t, r.Values())
	assert.EqualValues(t, 5, s.Accumulated())
}
