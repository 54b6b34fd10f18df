// Package memlimit reports how much memory a caller may still use before the
// process reaches its configured ceiling.
//
// A Guard never fails: it only reports numbers, and the caller decides whether
// to abort. The limit is resolved once per Guard and then memoized.
package memlimit

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"runtime/debug"
	"runtime/metrics"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	// Unbounded is the limit reported when no memory ceiling is configured.
	Unbounded int64 = math.MaxInt64

	// DefaultBuffer is the safety margin subtracted from the headroom.
	DefaultBuffer int64 = 1024 * 1024

	// units are indexed by their power of 1024; the leading space stands for "no suffix".
	units = " KMGT"

	heapObjectsMetric = "/memory/classes/heap/objects:bytes"
)

// ErrInvalidLimit is returned by ParseBytes when the value has no numeric part.
var ErrInvalidLimit = errors.New("invalid memory limit")

// UsageFunc returns the current memory usage of the process in bytes.
type UsageFunc func() int64

// Guard computes the remaining memory headroom.
type Guard struct {
	usage    UsageFunc
	buffer   int64
	resolver func() int64

	// cached holds the resolved limit; zero means not resolved yet.
	cached atomic.Int64
}

// Option configures a Guard.
type Option func(*Guard)

// WithLimit pins the limit to n bytes. A non-positive n means unbounded.
func WithLimit(n int64) Option {
	return func(g *Guard) {
		g.resolver = func() int64 {
			if n <= 0 {
				return Unbounded
			}
			return n
		}
	}
}

// WithLimitString resolves the limit from a size string such as "512M".
// Unparseable strings resolve to Unbounded; validate them with ParseBytes
// when they come from user configuration.
func WithLimitString(s string) Option {
	return func(g *Guard) {
		g.resolver = func() int64 {
			n, err := ParseBytes(s)
			if err != nil {
				return Unbounded
			}
			return n
		}
	}
}

// WithBuffer sets the safety buffer subtracted by Remaining.
func WithBuffer(n int64) Option {
	return func(g *Guard) {
		g.buffer = n
	}
}

// WithUsage replaces the memory usage provider.
func WithUsage(fn UsageFunc) Option {
	return func(g *Guard) {
		g.usage = fn
	}
}

// New returns a Guard. Without options it reads the Go runtime memory limit
// (GOMEMLIMIT) and the live heap size.
func New(opts ...Option) *Guard {
	g := &Guard{
		usage:    HeapUsage,
		buffer:   DefaultBuffer,
		resolver: RuntimeLimit,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Limit returns the memory ceiling in bytes. It is computed on first use and
// never recomputed afterwards.
func (g *Guard) Limit() int64 {
	if v := g.cached.Load(); v != 0 {
		return v
	}

	v := g.resolver()
	if v <= 0 {
		v = Unbounded
	}
	g.cached.Store(v)

	return v
}

// Buffer returns the configured safety buffer.
func (g *Guard) Buffer() int64 {
	return g.buffer
}

// Remaining returns limit - (usage + buffer). Zero or less means the budget
// is spent.
func (g *Guard) Remaining() int64 {
	return g.Limit() - (g.usage() + g.buffer)
}

// RuntimeLimit returns the soft memory limit of the Go runtime, which is
// math.MaxInt64 unless GOMEMLIMIT or debug.SetMemoryLimit configured one.
func RuntimeLimit() int64 {
	return debug.SetMemoryLimit(-1)
}

// HeapUsage returns the bytes occupied by live and unswept heap objects.
func HeapUsage() int64 {
	sample := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(sample)

	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}

	v := sample[0].Value.Uint64()
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// ParseBytes converts a size string such as "128", "512k" or "2G" into bytes.
// The suffix is one of K, M, G or T (case-insensitive) and multiplies the
// number by 1024 raised to its position; anything after the first suffix
// character is ignored, as is an unknown suffix. The empty string and "-1"
// mean no limit.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-1" {
		return Unbounded, nil
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, s)
	}

	number, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		// only range errors are possible here
		return Unbounded, nil
	}

	exp := 0
	if end < len(s) {
		if i := strings.IndexByte(units, upper(s[end])); i > 0 {
			exp = i
		}
	}

	for range exp {
		hi, lo := bits.Mul64(number, 1024)
		if hi != 0 {
			return Unbounded, nil
		}
		number = lo
	}

	if number > math.MaxInt64 {
		return Unbounded, nil
	}

	return int64(number), nil
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
