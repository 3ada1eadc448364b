// Package holding exposes read access to portfolio holdings. The CRUD layer
// owns the rows; the core only lists them.
package holding

import (
	"context"
	"time"
)

type Holding struct {
	ID          int64     `json:"id"`
	PortfolioID int64     `json:"portfolioId"`
	Ticker      string    `json:"ticker"`
	Market      string    `json:"market"`
	BuyDate     time.Time `json:"buyDate"`
	BuyPrice    float64   `json:"buyPrice"`
	Quantity    float64   `json:"quantity"`
}

// Symbol is a distinct (ticker, market) pair held in any portfolio.
type Symbol struct {
	Ticker string
	Market string
}

type Repository interface {
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]Holding, error)
	// ListHeldSymbols returns the distinct symbols across all portfolios;
	// the background refresher warms the quote cache for them.
	ListHeldSymbols(ctx context.Context) ([]Symbol, error)
}
