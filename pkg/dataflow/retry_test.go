package dataflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessAfterRetries", func(t *testing.T) {
		var attempts int32
		fn := func(msg string) (string, error) {
			curr := atomic.AddInt32(&attempts, 1)
			if curr < 3 {
				return "", errors.New("fail")
			}
			return "success", nil
		}

		src := From(ctx, "item1")
		res, wait := Map(ctx, src, fn, WithRetry(3, ConstantBackoff(10*time.Millisecond)))

		var results []string
		err := ForEach(ctx, res, func(msg string) error {
			results = append(results, msg)
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, wait())
		assert.Equal(t, []string{"success"}, results)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	})

	t.Run("FailAfterMaxRetries", func(t *testing.T) {
		var attempts int32
		fn := func(msg string) (string, error) {
			atomic.AddInt32(&attempts, 1)
			return "", errors.New("permanent fail")
		}

		src := From(ctx, "item1")
		// 1 attempt + 3 retries, then the stage stops
		res, wait := Map(ctx, src, fn, WithRetry(3, ConstantBackoff(1*time.Millisecond)))

		var results []string
		err := ForEach(ctx, res, func(msg string) error {
			results = append(results, msg)
			return nil
		})

		assert.NoError(t, err)
		assert.EqualError(t, wait(), "permanent fail")
		assert.Empty(t, results)
		assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
	})

	t.Run("ExponentialBackoff", func(t *testing.T) {
		backoff := ExponentialBackoff(10 * time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, backoff(0))
		assert.Equal(t, 10*time.Millisecond, backoff(1))
		assert.Equal(t, 20*time.Millisecond, backoff(2))
		assert.Equal(t, 40*time.Millisecond, backoff(3))
		assert.Equal(t, 80*time.Millisecond, backoff(4))
	})
}

func TestMap_Workers(t *testing.T) {
	ctx := context.Background()
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	res, wait := Map(ctx, From(ctx, items...), func(n int) (int, error) { return n * n, nil },
		WithWorkers(4), WithBufferSize(8))

	var mu sync.Mutex
	var got []int
	err := ForEach(ctx, res, func(n int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n)
		return nil
	}, WithWorkers(2))

	assert.NoError(t, err)
	assert.NoError(t, wait())
	sort.Ints(got)
	assert.Len(t, got, 50)
	assert.Equal(t, 49*49, got[49])
}

func TestMap_ErrorHandler(t *testing.T) {
	ctx := context.Background()
	two := errors.New("two")
	fn := func(n int) (int, error) {
		if n == 2 {
			return 0, two
		}
		return n, nil
	}

	t.Run("Skip", func(t *testing.T) {
		var handled []error
		res, wait := Map(ctx, From(ctx, 1, 2, 3), fn, WithErrorHandler(func(err error) bool {
			handled = append(handled, err)
			return true
		}))

		var got []int
		assert.NoError(t, ForEach(ctx, res, func(n int) error {
			got = append(got, n)
			return nil
		}))
		assert.NoError(t, wait())
		assert.Equal(t, []int{1, 3}, got)
		assert.Len(t, handled, 1)
	})

	t.Run("Stop", func(t *testing.T) {
		res, wait := Map(ctx, From(ctx, 1, 2, 3), fn, WithErrorHandler(func(error) bool { return false }))

		var got []int
		assert.NoError(t, ForEach(ctx, res, func(n int) error {
			got = append(got, n)
			return nil
		}))
		assert.ErrorIs(t, wait(), two)
		assert.NotContains(t, got, 3)
	})
}

func TestForEach_ReturnsFirstError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	var calls int32
	err := ForEach(ctx, From(ctx, "a", "b", "c"), func(s string) error {
		atomic.AddInt32(&calls, 1)
		if s == "b" {
			return boom
		}
		return nil
	}, WithRetry(1, nil))

	assert.ErrorIs(t, err, boom)
	// "a" once, "b" twice
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestForEach_HandledErrorsContinue(t *testing.T) {
	ctx := context.Background()
	var seen []string
	err := ForEach(ctx, From(ctx, "a", "b"), func(s string) error {
		seen = append(seen, s)
		return errors.New("ignored")
	}, WithErrorHandler(func(error) bool { return true }))

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
