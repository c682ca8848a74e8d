package catalog

import (
	"strings"
)

// lowerer maps dotted capital I to "i" plus a combining dot above before
// lowercasing, as full Unicode case mapping does. Group titles like
// "GENEL ÖZELLİKLER" then produce the canonical "genel_özelli̇kler".
var lowerer = strings.NewReplacer("İ", "i̇")

var keyReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"(", "",
	")", "",
	"%", "yuzde",
	"-", "_",
)

// NormalizeKey builds a column name from a feature group title and an
// attribute label.
func NormalizeKey(group, attribute string) string {
	return keyReplacer.Replace(lower(group + "_" + attribute))
}

func lower(s string) string {
	return strings.ToLower(lowerer.Replace(s))
}

// DetectGroup infers the feature group of column from the underscore
// prefixes it shares with allColumns. Prefixes are tried shortest first and
// one replaces the current best only when it is shared by at least
// minGroupSize columns and by more columns than the best so far. The first
// segment is the fallback.
func DetectGroup(column string, allColumns []string, minGroupSize int) string {
	parts := strings.Split(column, "_")
	best := parts[0]
	bestCount := 0
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "_")
		count := 0
		for _, c := range allColumns {
			if c == prefix || strings.HasPrefix(c, prefix+"_") {
				count++
			}
		}
		if count >= minGroupSize && count > bestCount {
			best = prefix
			bestCount = count
		}
	}
	return best
}

// FeatureGroup is a named set of columns.
type FeatureGroup struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
}

// FeatureGroups partitions columns by DetectGroup, with groups and their
// members in first-seen order.
func FeatureGroups(columns []string, minGroupSize int) []FeatureGroup {
	rets := []FeatureGroup{}
	idx := map[string]int{}
	for _, c := range columns {
		g := DetectGroup(c, columns, minGroupSize)
		i, ok := idx[g]
		if !ok {
			i = len(rets)
			idx[g] = i
			rets = append(rets, FeatureGroup{Name: g, Features: []string{}})
		}
		rets[i].Features = append(rets[i].Features, c)
	}
	return rets
}
