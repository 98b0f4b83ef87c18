package attendance

import (
	"sort"
	"strconv"
	"strings"
)

// Roster is the closed, ordered set of valid class identifiers. It is static
// configuration, never inferred from the record set.
type Roster []string

// DefaultRoster is the SMAN 1 Caringin class list.
func DefaultRoster() Roster {
	return Roster{
		"X-1", "X-2", "X-3", "X-4", "X-5", "X-6", "X-7", "X-8",
		"XI-1", "XI-2", "XI-3", "XI-4", "XI-5", "XI-6", "XI-7", "XI-8", "XI-9",
		"XII-1", "XII-2", "XII-3", "XII-4", "XII-5", "XII-6", "XII-7", "XII-8", "XII-9",
	}
}

func (r Roster) Contains(classID string) bool {
	for _, id := range r {
		if id == classID {
			return true
		}
	}
	return false
}

// Ordered returns a copy sorted by tier rank (X before XI before XII) then
// numeric section ascending. Unparseable identifiers sort last, by name.
func (r Roster) Ordered() Roster {
	out := make(Roster, len(r))
	copy(out, r)
	sort.SliceStable(out, func(i, j int) bool {
		ti, si, oki := classRank(out[i])
		tj, sj, okj := classRank(out[j])
		if oki != okj {
			return oki
		}
		if !oki {
			return out[i] < out[j]
		}
		if ti != tj {
			return ti < tj
		}
		return si < sj
	})
	return out
}

var tierRanks = map[string]int{"X": 0, "XI": 1, "XII": 2}

// classRank parses a "TIER-SECTION" identifier such as "XI-3".
func classRank(classID string) (tier, section int, ok bool) {
	parts := strings.SplitN(classID, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	tier, ok = tierRanks[parts[0]]
	if !ok {
		return 0, 0, false
	}
	section, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return tier, section, true
}
