package holding

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/holding"
)

const dateFormat = "2006-01-02"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Holding, error) {
	const query = `SELECT id, portfolio_id, ticker, market, buy_date, buy_price, quantity
		FROM holdings
		WHERE portfolio_id = ?
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var buyDate string
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Ticker, &h.Market, &buyDate, &h.BuyPrice, &h.Quantity); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		h.BuyDate, _ = time.Parse(dateFormat, buyDate)
		holdings = append(holdings, h)
	}

	return holdings, rows.Err()
}

func (r *Repository) ListHeldSymbols(ctx context.Context) ([]domain.Symbol, error) {
	const query = `SELECT DISTINCT ticker, market FROM holdings ORDER BY market, ticker`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list held symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []domain.Symbol
	for rows.Next() {
		var s domain.Symbol
		if err := rows.Scan(&s.Ticker, &s.Market); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	return symbols, rows.Err()
}
