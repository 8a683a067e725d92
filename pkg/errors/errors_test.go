package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	sentinel := stderrors.New("boom")

	wrapped := Wrap(sentinel, "doing work")
	require.Error(t, wrapped)
	assert.Equal(t, "doing work: boom", wrapped.Error())
	assert.True(t, Is(wrapped, sentinel))

	double := Wrapf(wrapped, "outer %v", "layer")
	assert.Equal(t, "outer layer: doing work: boom", double.Error())
	assert.True(t, Is(double, sentinel))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
	assert.Nil(t, WithStack(nil))
}

func TestNewCarriesStack(t *testing.T) {
	err := New("boom")
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "errors_test.go")
}

func TestAsFindsTypedCause(t *testing.T) {
	type coded struct{ error }
	cause := &coded{error: stderrors.New("typed")}

	var target *coded
	assert.True(t, As(Wrap(cause, "ctx"), &target))
	assert.Same(t, cause, target)
}

func TestStackBasedRateLimiter(t *testing.T) {
	limiter := newRateLimiter(time.Hour)

	limited, stats := limiter.StackBasedRateLimited("frame-a")
	assert.False(t, limited)
	assert.Equal(t, 0, stats.totalOccurCount)

	limited, stats = limiter.StackBasedRateLimited("frame-a")
	assert.True(t, limited)
	assert.Equal(t, 1, stats.totalOccurCount)

	// a different frame is tracked independently
	limited, _ = limiter.StackBasedRateLimited("frame-b")
	assert.False(t, limited)
}

func TestStackBasedRateLimiterWindowElapses(t *testing.T) {
	limiter := newRateLimiter(time.Millisecond)

	limited, _ := limiter.StackBasedRateLimited("frame")
	assert.False(t, limited)

	time.Sleep(time.Millisecond * 5)
	limited, stats := limiter.StackBasedRateLimited("frame")
	assert.False(t, limited)
	assert.Equal(t, 1, stats.totalOccurCount)
}
