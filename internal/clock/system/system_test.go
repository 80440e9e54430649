package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

var (
	_ indexer.Clock = (*Clock)(nil)
	_ indexer.Clock = Func(nil)
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	got := New().Now()
	after := time.Now().UTC().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after), "expected %v within [%v, %v]", got, before, after)
}

func TestFixed(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := Fixed(at)
	assert.Equal(t, at, clk.Now())
	assert.Equal(t, at, clk.Now())
}

func TestFuncAdvances(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	clk := Func(func() time.Time {
		n++
		return at.Add(time.Duration(n) * time.Second)
	})
	first, second := clk.Now(), clk.Now()
	assert.Equal(t, time.Second, second.Sub(first))
}
