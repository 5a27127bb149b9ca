package rules

import (
	"fmt"
	"strings"
)

// Operator is the aggregation applied to a data column when rows are collapsed
// onto a common ancestor region.
type Operator int

const (
	Sum Operator = iota + 1
	Mean
	// WeightedMean averages values weighted by the weight column of the same row.
	WeightedMean
)

// String returns the name used in output column suffixes and config files.
func (o Operator) String() string {
	switch o {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case WeightedMean:
		return "wtmean"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Suffix is appended to a column name to record how it was aggregated.
func (o Operator) Suffix() string { return "_" + o.String() }

// ParseOperator accepts "sum", "mean" and "wtmean" (also "weighted-mean",
// "weighted_mean").
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return Sum, nil
	case "mean", "avg":
		return Mean, nil
	case "wtmean", "weighted-mean", "weighted_mean":
		return WeightedMean, nil
	}
	return 0, fmt.Errorf("unknown aggregation operator %q (use sum|mean|wtmean)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(b []byte) error {
	op, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
