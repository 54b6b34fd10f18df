package memlimit

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{input: "", expected: Unbounded},
		{input: "-1", expected: Unbounded},
		{input: "0", expected: 0},
		{input: "128", expected: 128},
		{input: "1k", expected: 1024},
		{input: "1K", expected: 1024},
		{input: "512M", expected: 512 * 1024 * 1024},
		{input: "512m", expected: 512 * 1024 * 1024},
		{input: "2G", expected: 2 * 1024 * 1024 * 1024},
		{input: "3t", expected: 3 * 1024 * 1024 * 1024 * 1024},
		{input: "64MB", expected: 64 * 1024 * 1024},
		{input: "10X", expected: 10},
		{input: " 8K ", expected: 8 * 1024},
		{input: "99999999999T", expected: Unbounded},
		{input: "99999999999999999999999", expected: Unbounded},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			n, err := ParseBytes(test.input)
			require.NoError(t, err)
			require.Equal(t, test.expected, n)
		})
	}

	t.Run("no_number", func(t *testing.T) {
		_, err := ParseBytes("M")
		require.ErrorIs(t, err, ErrInvalidLimit)

		_, err = ParseBytes("unlimited")
		require.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestGuardLimitIsMemoized(t *testing.T) {
	calls := 0
	g := New(WithUsage(func() int64 { return 0 }))
	g.resolver = func() int64 {
		calls++
		return 4096
	}

	require.Equal(t, int64(4096), g.Limit())
	require.Equal(t, int64(4096), g.Limit())
	g.Remaining()
	require.Equal(t, 1, calls)
}

func TestGuardLimitConcurrentResolution(t *testing.T) {
	g := New(WithLimitString("16M"), WithUsage(func() int64 { return 0 }))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Equal(t, int64(16*1024*1024), g.Limit())
		}()
	}
	wg.Wait()
}

func TestGuardRemaining(t *testing.T) {
	t.Run("subtracts_usage_and_buffer", func(t *testing.T) {
		g := New(WithLimit(10_000), WithBuffer(1_000), WithUsage(func() int64 { return 4_000 }))
		require.Equal(t, int64(5_000), g.Remaining())
	})

	t.Run("default_buffer_is_one_mebibyte", func(t *testing.T) {
		g := New(WithLimit(3*DefaultBuffer), WithUsage(func() int64 { return 0 }))
		require.Equal(t, DefaultBuffer, g.Buffer())
		require.Equal(t, 2*DefaultBuffer, g.Remaining())
	})

	t.Run("spent_budget_is_not_positive", func(t *testing.T) {
		g := New(WithLimit(1_000), WithBuffer(0), WithUsage(func() int64 { return 1_000 }))
		require.LessOrEqual(t, g.Remaining(), int64(0))
	})

	t.Run("unbounded_is_very_large", func(t *testing.T) {
		g := New(WithLimit(0), WithUsage(func() int64 { return 0 }))
		require.Equal(t, Unbounded, g.Limit())
		require.Greater(t, g.Remaining(), int64(math.MaxInt64/2))
	})

	t.Run("invalid_limit_string_is_unbounded", func(t *testing.T) {
		g := New(WithLimitString("lots"))
		require.Equal(t, Unbounded, g.Limit())
	})

	t.Run("runtime_defaults", func(t *testing.T) {
		g := New()
		require.Positive(t, g.Limit())
		require.Positive(t, HeapUsage())
	})
}
