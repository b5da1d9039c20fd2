package utilization

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
)

// NotAvailable is the sentinel the collectors wrote when a reading could not be taken.
const NotAvailable = "NA"

// Reading is one percent value from a utilization trace. Available is false for NA cells.
type Reading struct {
	Value     float64
	Available bool
}

func Available(value float64) Reading {
	return Reading{Value: value, Available: true}
}

func ParseReading(text string) (Reading, error) {
	text = strings.TrimSpace(text)
	if text == NotAvailable {
		return Reading{}, nil
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Reading{}, domain.Errorf(domain.ErrFormat, "utilization reading \"%s\" is neither a number nor %s", text, NotAvailable)
	}
	return Available(value), nil
}

// UnmarshalText allows Reading to be used directly as a CSV column type.
func (r *Reading) UnmarshalText(text []byte) error {
	reading, err := ParseReading(string(text))
	if err != nil {
		return err
	}
	*r = reading
	return nil
}

func (r Reading) String() string {
	if !r.Available {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", r.Value)
}
