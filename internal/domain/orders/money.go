package orders

import "math"

// Money is an amount in minor units (cents). The wire format and the HTTP
// boundary carry dollars as float64; conversion happens exactly once at each
// edge so arithmetic in between stays integral. The Postgres layer stores
// NUMERIC(10,2) and scales by 100 in SQL.
type Money int64

// MoneyFromDollars converts a dollar amount to cents, rounding half away
// from zero.
func MoneyFromDollars(d float64) Money {
	return Money(math.Round(d * 100.0))
}

// Dollars converts back to the float representation used on the wire.
func (m Money) Dollars() float64 { return float64(m) / 100.0 }
