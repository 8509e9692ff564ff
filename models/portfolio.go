package models

// Holding is one position in a user's portfolio
type Holding struct {
	ID           int     `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	Change24h    float64 `json:"change_24h"`
	Value        float64 `json:"value"`
	Allocation   float64 `json:"allocation"`
}

// PortfolioSummary is a priced portfolio with its totals
type PortfolioSummary struct {
	Holdings       []Holding `json:"holdings"`
	TotalValue     float64   `json:"total_value"`
	TotalCost      float64   `json:"total_cost"`
	TotalChangePct float64   `json:"total_change_pct"`
}
