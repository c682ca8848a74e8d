package dataset

import (
	"github.com/samber/lo"
)

type ConstantReason string

const (
	ReasonAllEmpty    ConstantReason = "all empty"
	ReasonSingleValue ConstantReason = "single value"
	ReasonDominant    ConstantReason = "dominant value"
)

// ConstantColumn is a removal candidate. Value and Share describe the most
// common non-empty value; Others lists the remaining distinct values.
type ConstantColumn struct {
	Name   string
	Reason ConstantReason
	Value  string
	Share  float64
	Others []string
}

// ConstantColumns flags columns whose non-empty values are all missing, all
// equal, or split between two values with the more common one holding at
// least dominance percent. A table without rows flags nothing.
func ConstantColumns(t *Table, dominance float64) []ConstantColumn {
	rets := []ConstantColumn{}
	if len(t.Rows) == 0 {
		return rets
	}
	for _, col := range t.Columns {
		values := lo.Filter(t.Values(col), func(v string, _ int) bool { return v != "" })
		if len(values) == 0 {
			rets = append(rets, ConstantColumn{Name: col, Reason: ReasonAllEmpty})
			continue
		}

		distinct := lo.Uniq(values)
		if len(distinct) > 2 {
			continue
		}
		counts := lo.CountValues(values)
		// Ties go to the value seen first.
		dom := lo.MaxBy(distinct, func(a, b string) bool { return counts[a] > counts[b] })
		share := float64(counts[dom]*100) / float64(len(values))
		others := lo.Without(distinct, dom)

		switch {
		case len(distinct) == 1:
			rets = append(rets, ConstantColumn{Name: col, Reason: ReasonSingleValue, Value: dom, Share: share, Others: others})
		case share >= dominance:
			rets = append(rets, ConstantColumn{Name: col, Reason: ReasonDominant, Value: dom, Share: share, Others: others})
		}
	}
	return rets
}
