package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	e := New(Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8})

	var counter int64
	seen := make([]int32, 1000)
	e.For(true, 0, 1000, func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	})

	assert.Equal(t, int64(1000), counter)
	for i, s := range seen {
		assert.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestFor_Offset(t *testing.T) {
	e := New(Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1})

	var sum int64
	e.For(true, 10, 20, func(i int) {
		atomic.AddInt64(&sum, int64(i))
	})
	assert.Equal(t, int64(145), sum)
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	Sequential().For(true, 0, 5, func(i int) {
		order = append(order, i)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_ParallelFlagOff(t *testing.T) {
	e := New(Config{Enabled: true, NumWorkers: 8, MinChunkSize: 1})
	var order []int
	e.For(false, 0, 4, func(i int) {
		order = append(order, i)
	})
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestFor_NilExecutor(t *testing.T) {
	var e *Executor
	var order []int
	e.For(true, 0, 3, func(i int) {
		order = append(order, i)
	})
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 1, e.Config().NumWorkers)
}

func TestFor_EmptyRange(t *testing.T) {
	called := false
	New(DefaultConfig()).For(true, 5, 5, func(int) { called = true })
	assert.False(t, called)
}

func TestNewClampsConfig(t *testing.T) {
	e := New(Config{Enabled: true})
	assert.Equal(t, 1, e.Config().NumWorkers)
	assert.Equal(t, 1, e.Config().MinChunkSize)
}
