package plan

import (
	"reflect"
	"slices"
)

// Sort orders actions for execution and returns a new slice.
//
// Adjacent structural duplicates are collapsed first. Actions are then
// grouped by kind precedence; inside a group an action that depends on
// another action's table comes after it, and actions with fewer
// dependencies come first. Sorting a sorted list is a no-op.
func Sort(actions []Action) []Action {
	deduped := dedupAdjacent(actions)

	groups := make([][]Action, len(kindNames))
	for _, a := range deduped {
		if a.Kind < 0 || int(a.Kind) >= len(groups) {
			continue
		}
		groups[a.Kind] = append(groups[a.Kind], a)
	}

	out := make([]Action, 0, len(deduped))
	for _, g := range groups {
		out = append(out, orderGroup(g)...)
	}
	return dedupAdjacent(out)
}

func dedupAdjacent(actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if n := len(out); n > 0 && reflect.DeepEqual(out[n-1], a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// mustPrecede reports whether a has to run before b: b depends on the table a
// works on, and the two actions touch different tables.
func mustPrecede(a, b Action) bool {
	return a.Table != b.Table && slices.Contains(b.DependsOn, a.Table)
}

// orderGroup topologically sorts actions of one kind. Among ready actions the
// one with the fewest dependencies wins, ties keep input order. A dependency
// cycle is broken by taking the best remaining action by the same rule.
func orderGroup(group []Action) []Action {
	n := len(group)
	if n < 2 {
		return slices.Clone(group)
	}

	blockers := make([]int, n)
	for i := range group {
		for j := range group {
			if i != j && mustPrecede(group[j], group[i]) {
				blockers[i]++
			}
		}
	}

	done := make([]bool, n)
	out := make([]Action, 0, n)
	for len(out) < n {
		next := best(group, done, func(i int) bool { return blockers[i] == 0 })
		if next < 0 {
			next = best(group, done, func(int) bool { return true })
		}
		done[next] = true
		out = append(out, group[next])
		for i := range group {
			if !done[i] && mustPrecede(group[next], group[i]) {
				blockers[i]--
			}
		}
	}
	return out
}

func best(group []Action, done []bool, eligible func(int) bool) int {
	pick := -1
	for i := range group {
		if done[i] || !eligible(i) {
			continue
		}
		if pick < 0 || len(group[i].DependsOn) < len(group[pick].DependsOn) {
			pick = i
		}
	}
	return pick
}
