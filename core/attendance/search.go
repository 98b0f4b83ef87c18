package attendance

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// nameMaxSim is the similarity ratio above which two names are considered
// the same student. Names come from manual Dapodik entry and carry typos.
const nameMaxSim = .8

// matchName does a case-insensitive substring match first, then falls back
// to a similarity ratio for misspelled queries.
func matchName(name, query string) bool {
	lname, lquery := strings.ToLower(name), strings.ToLower(query)
	if strings.Contains(lname, lquery) {
		return true
	}
	m := difflib.NewMatcher(strings.Split(lname, ""), strings.Split(lquery, ""))
	return m.QuickRatio() >= nameMaxSim
}
