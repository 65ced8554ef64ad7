package domain

// CartLine is one product entry in a cart with the price captured when the
// line was first added.
type CartLine struct {
	ProductID           string  `json:"productId"`
	Name                string  `json:"name"`
	UnitPrice           float64 `json:"unitPrice"`
	DiscountedUnitPrice float64 `json:"discountedUnitPrice"`
	Quantity            int     `json:"quantity"`
	ImageRef            string  `json:"imageRef,omitempty"`
}

// EffectivePrice returns the price a line contributes per unit: the
// discounted price when one is set, otherwise the regular unit price.
func (l CartLine) EffectivePrice() float64 {
	if l.DiscountedUnitPrice != 0 {
		return l.DiscountedUnitPrice
	}
	return l.UnitPrice
}

// Cart is the in-progress, unsubmitted selection of purchasable lines.
// At most one line exists per product ID.
type Cart []CartLine

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// Total is the sum of effective price times quantity over all lines.
func (c Cart) Total() float64 {
	var total float64
	for _, l := range c {
		total += l.EffectivePrice() * float64(l.Quantity)
	}
	return total
}

// IndexOf returns the position of the line holding productID, or -1.
func (c Cart) IndexOf(productID string) int {
	for i, l := range c {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing storage with the receiver.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
