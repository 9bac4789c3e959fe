package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

type countingSink struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (c *countingSink) Emit(ev domain.LedgerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNewMultiSink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}

	// No sinks collapses to nil, a single sink is returned unwrapped.
	assert.Nil(t, newMultiSink())
	assert.Nil(t, newMultiSink(nil, nil))
	assert.Equal(t, domain.EventSink(a), newMultiSink(nil, a))

	sink := newMultiSink(a, nil, b)
	sink.Emit(domain.LedgerEvent{
		Type:       domain.EventPositionOpened,
		PositionID: 1,
		At:         time.Now().UTC(),
	})
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestDescribeEvent(t *testing.T) {
	title, message := describeEvent(domain.LedgerEvent{
		Type:       domain.EventPositionLiquidated,
		PositionID: 7,
		Owner:      "alice",
		Collateral: "1000",
		Debt:       "500",
	})
	assert.Equal(t, "Position liquidated", title)
	assert.Contains(t, message, "position 7")
	assert.Contains(t, message, "alice")

	title, _ = describeEvent(domain.LedgerEvent{Type: domain.EventPositionOpened, PositionID: 1})
	assert.Equal(t, "Position opened", title)

	title, message = describeEvent(domain.LedgerEvent{Type: "custom", PositionID: 2})
	assert.Equal(t, "custom", title)
	assert.Contains(t, message, "position 2")
}
