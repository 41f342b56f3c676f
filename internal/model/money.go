package model

import "github.com/shopspring/decimal"

// RoundCents rounds an amount to the nearest cent, half away from zero.
func RoundCents(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// LineCost returns price times quantity rounded to cents.
func LineCost(price float64, quantity int) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity))).Round(2).Float64()
	return f
}

// SumCents adds amounts exactly and rounds the total to cents.
func SumCents(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Round(2).Float64()
	return f
}
