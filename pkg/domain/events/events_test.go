package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	for typ, factory := range EventTypes {
		evt := factory()
		assert.Equal(t, typ.String(), evt.Type())
	}
}

func TestEntryRecorded_JSON(t *testing.T) {
	evt := EntryRecorded{
		EntryID:      "01J00000000000000000000000",
		AccountID:    uuid.New(),
		Sequence:     3,
		Delta:        decimal.RequireFromString("-30.00"),
		BalanceAfter: decimal.RequireFromString("20.00"),
		Reason:       "purchase",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "-30", m["delta"])
	assert.Equal(t, float64(3), m["sequence"])
	assert.Contains(t, m, "balanceAfter")
}
