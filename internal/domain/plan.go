package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a purchasable subscription product.
type Plan struct {
	ID       string
	Name     string
	Period   string // "week", "year"
	Duration time.Duration
	Price    decimal.Decimal // USD
	HasTrial bool
}

type Transaction struct {
	ID        int64
	UserID    int64
	PlanID    string
	AmountUSD decimal.Decimal
	Stars     int
	ChargeID  string
	CreatedAt time.Time
}
