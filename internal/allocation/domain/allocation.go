package allocation

import (
	"sort"
	"strings"

	consents "water-usage/internal/consents/domain"
)

// Default activity filters of the take allocation table.
const (
	ActivityTakeSurfaceWater = "Take Surface Water"
	ActivityTakeGroundwater  = "Take Groundwater"
)

// Row is one consent to WAP allocation record.
type Row struct {
	ConsentNo string
	WAP       string
	Activity  string
}

// NormalizeWAP trims and upper-cases a WAP identifier.
func NormalizeWAP(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeActivity trims and lower-cases an activity name.
func NormalizeActivity(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeActivities returns the unique normalized activities, blanks dropped.
func NormalizeActivities(raw []string) []string {
	return uniqueNormalized(raw, NormalizeActivity)
}

// NormalizeWAPs returns the sorted unique normalized WAPs, blanks dropped.
func NormalizeWAPs(raw []string) []string {
	return uniqueNormalized(raw, NormalizeWAP)
}

func uniqueNormalized(raw []string, normalize func(string) string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Normalize returns the row with trimmed, case-folded fields.
func Normalize(r Row) Row {
	return Row{
		ConsentNo: consents.Normalize(r.ConsentNo).String(),
		WAP:       NormalizeWAP(r.WAP),
		Activity:  NormalizeActivity(r.Activity),
	}
}

// Pair is a unique consent and WAP combination.
type Pair struct {
	ConsentNo     string
	WAP           string
	ActivityCount int
}

type pairKey struct {
	consent string
	wap     string
}

// Deduplicate normalizes rows and collapses them to unique (consent, WAP) pairs
// ordered by consent then WAP. ActivityCount counts the rows of each pair.
// Rows with a blank consent or WAP are dropped.
func Deduplicate(rows []Row) []Pair {
	counts := make(map[pairKey]int, len(rows))
	for _, raw := range rows {
		r := Normalize(raw)
		if r.ConsentNo == "" || r.WAP == "" {
			continue
		}
		counts[pairKey{consent: r.ConsentNo, wap: r.WAP}]++
	}
	pairs := make([]Pair, 0, len(counts))
	for k, n := range counts {
		pairs = append(pairs, Pair{ConsentNo: k.consent, WAP: k.wap, ActivityCount: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ConsentNo != pairs[j].ConsentNo {
			return pairs[i].ConsentNo < pairs[j].ConsentNo
		}
		return pairs[i].WAP < pairs[j].WAP
	})
	return pairs
}

// WAPs returns the sorted unique WAPs referenced by pairs.
func WAPs(pairs []Pair) []string {
	seen := make(map[string]struct{}, len(pairs))
	waps := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.WAP == "" {
			continue
		}
		if _, ok := seen[p.WAP]; ok {
			continue
		}
		seen[p.WAP] = struct{}{}
		waps = append(waps, p.WAP)
	}
	sort.Strings(waps)
	return waps
}

// ByWAP indexes pairs by WAP, keeping consent order.
func ByWAP(pairs []Pair) map[string][]Pair {
	index := make(map[string][]Pair)
	for _, p := range pairs {
		index[p.WAP] = append(index[p.WAP], p)
	}
	for wap := range index {
		list := index[wap]
		sort.SliceStable(list, func(i, j int) bool { return list[i].ConsentNo < list[j].ConsentNo })
	}
	return index
}
