package core

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// suggest returns entries of haystack within maxDistance edits of needle,
// closest first.
func suggest(needle string, haystack []string, maxDistance int) []string {
	r := []rune(needle)
	type candidate struct {
		s    string
		dist int
	}
	candidates := make([]candidate, 0, len(haystack))
	for _, straw := range haystack {
		dist := levenshtein.DistanceForStrings(r, []rune(straw), levenshtein.DefaultOptions)
		if len(straw) > 0 && dist <= maxDistance {
			candidates = append(candidates, candidate{s: straw, dist: dist})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	ret := make([]string, len(candidates))
	for i, c := range candidates {
		ret[i] = c.s
	}
	return ret
}

// SuggestTargets renders a "maybe you meant X or Y?" suffix for an unknown
// target name typed on the command line, or "" if nothing in spec's
// targets is close enough to needle to be worth suggesting.
func SuggestTargets(needle string, spec *BuildSpec) string {
	return suggestionMessage(needle, spec.Names(), 2)
}

// suggestionMessage renders a "maybe you meant X or Y?" suffix for an error
// message, or "" if nothing is close enough to needle to be worth suggesting.
func suggestionMessage(needle string, haystack []string, maxDistance int) string {
	options := suggest(needle, haystack, maxDistance)
	if len(options) == 0 {
		return ""
	}
	msg := " (maybe you meant "
	for i, o := range options {
		if i > 0 {
			if i < len(options)-1 {
				msg += ", "
			} else {
				msg += " or "
			}
		}
		msg += o
	}
	return msg + "?)"
}
