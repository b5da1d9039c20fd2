package statistics

import (
	"github.com/shopspring/decimal"
)

// Accumulator keeps a running count, sum and sum of squares so that the mean and the population
// variance of a stream can be read at any point without retaining the values.
type Accumulator struct {
	n          int64
	sum        decimal.Decimal
	sumSquares decimal.Decimal
	min        decimal.Decimal
	max        decimal.Decimal
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		sum:        decimal.Zero,
		sumSquares: decimal.Zero,
	}
}

func (s *Accumulator) Add(val decimal.Decimal) {
	if s.n == 0 || val.LessThan(s.min) {
		s.min = val
	}
	if s.n == 0 || val.GreaterThan(s.max) {
		s.max = val
	}

	s.sum = s.sum.Add(val)
	s.sumSquares = s.sumSquares.Add(val.Mul(val))
	s.n += 1
}

func (s *Accumulator) AddFloat(val float64) {
	s.Add(decimal.NewFromFloat(val))
}

func (s *Accumulator) N() int64 {
	return s.n
}

func (s *Accumulator) Sum() decimal.Decimal {
	return s.sum
}

func (s *Accumulator) Min() decimal.Decimal {
	return s.min
}

func (s *Accumulator) Max() decimal.Decimal {
	return s.max
}

// Avg returns zero for an empty accumulator.
func (s *Accumulator) Avg() decimal.Decimal {
	if s.n == 0 {
		return decimal.Zero
	}
	return s.sum.Div(decimal.NewFromInt(s.n))
}

// PopulationVariance computes E[x^2] - E[x]^2 over every value added so far.
func (s *Accumulator) PopulationVariance() decimal.Decimal {
	if s.n == 0 {
		return decimal.Zero
	}

	avg := s.Avg()
	variance := s.sumSquares.Div(decimal.NewFromInt(s.n)).Sub(avg.Mul(avg))

	// Division is rounded, so a constant stream can land a hair below zero.
	if variance.IsNegative() {
		return decimal.Zero
	}
	return variance
}

func (s *Accumulator) PopulationStandardDeviation() decimal.Decimal {
	return s.PopulationVariance().Pow(decimal.NewFromFloat(0.5))
}
