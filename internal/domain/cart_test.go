package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_Total(t *testing.T) {
	cart := Cart{
		{ProductID: "A", UnitPrice: 100, DiscountedUnitPrice: 90, Quantity: 2},
		{ProductID: "B", UnitPrice: 50, DiscountedUnitPrice: 0, Quantity: 1},
	}

	// A contributes its discounted price, B falls back to the unit price.
	assert.InDelta(t, 90*2+50, cart.Total(), 1e-9)
}

func TestCart_Total_Empty(t *testing.T) {
	assert.Zero(t, Cart{}.Total())
	assert.Zero(t, Cart(nil).Total())
}

func TestCartLine_EffectivePrice(t *testing.T) {
	assert.Equal(t, 90.0, CartLine{UnitPrice: 100, DiscountedUnitPrice: 90}.EffectivePrice())
	assert.Equal(t, 100.0, CartLine{UnitPrice: 100}.EffectivePrice())
	assert.Zero(t, CartLine{}.EffectivePrice())
}

func TestCart_IndexOf(t *testing.T) {
	cart := Cart{{ProductID: "A"}, {ProductID: "B"}}

	assert.Equal(t, 0, cart.IndexOf("A"))
	assert.Equal(t, 1, cart.IndexOf("B"))
	assert.Equal(t, -1, cart.IndexOf("C"))
}

func TestCart_Clone_Independent(t *testing.T) {
	cart := Cart{{ProductID: "A", Quantity: 1}}
	clone := cart.Clone()

	clone[0].Quantity = 99

	assert.Equal(t, 1, cart[0].Quantity)
}
