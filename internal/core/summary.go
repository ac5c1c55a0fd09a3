package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Amount     Money
}
