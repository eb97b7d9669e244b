package domain

import "time"

// CartLine is one line of a cart snapshot taken at checkout time.
type CartLine struct {
	ProductID string
	VariantID string
	Quantity  int
}

type CartItem struct {
	ID        string
	OwnerID   string
	ProductID string
	VariantID string
	Quantity  int
	CreatedAt time.Time
}

type Cart struct {
	OwnerID string
	Items   []CartItem
}

func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
