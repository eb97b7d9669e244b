package domain

// StockCount is the code pool state of one auto-fulfilled product.
type StockCount struct {
	ProductID string
	Available int64
	Used      int64
}
