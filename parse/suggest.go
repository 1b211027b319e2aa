package parse

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// didYouMean returns a hint with the closest of names, or an empty string.
func didYouMean(name string, names []string) string {
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) == 0 {
		return ""
	}

	sort.Sort(ranks)

	return fmt.Sprintf(" (did you mean %v?)", ranks[0].Target)
}
