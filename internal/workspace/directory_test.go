package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCached_FetchesOnceWithinTTL(t *testing.T) {
	calls := 0
	c := newCached(time.Minute, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	v1, err := c.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 42, v1)

	v2, err := c.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls, "second Get within TTL must not refetch")
}

func TestCached_RefetchesAfterTTLExpires(t *testing.T) {
	calls := 0
	c := newCached(time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})

	v1, _ := c.Get(context.Background())
	time.Sleep(5 * time.Millisecond)
	v2, _ := c.Get(context.Background())

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestDirectory_FallsBackToStaticMapOnMissingScope(t *testing.T) {
	d := NewDirectory(nil, map[string]string{"U123": "Alice"})
	d.listedOnce = true // simulate a failed/empty populate already having run

	assert.Equal(t, "Alice", d.Name(context.Background(), "U123"))
}

func TestDirectory_FallsBackToUserIDWhenUnresolvable(t *testing.T) {
	d := NewDirectory(nil, map[string]string{})
	d.listedOnce = true

	assert.Equal(t, "U999", d.Name(context.Background(), "U999"))
}
