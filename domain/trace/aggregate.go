package trace

import (
	"sort"
)

// BuildInteractions derives interactions from a flat step collection. Steps
// with no interaction id are not part of this view. Within an interaction,
// steps are ordered by start time with undefined starts sorting last; the
// interaction start is the minimum defined start, its duration the sum of
// defined durations, and its group id the first non-nil group id among the
// member steps in their original order. Pure and idempotent: re-run whenever
// the step set changes.
func BuildInteractions(steps []Step) []Interaction {
	grouped := make(map[string][]Step)
	var order []string
	for _, step := range steps {
		if step.InteractionID == nil {
			continue
		}
		id := *step.InteractionID
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], step)
	}

	interactions := make([]Interaction, 0, len(order))
	for _, id := range order {
		members := grouped[id]

		// first non-nil group id in original order, before sorting
		var groupID *string
		for _, step := range members {
			if step.GroupID != nil {
				groupID = step.GroupID
				break
			}
		}

		sorted := make([]Step, len(members))
		copy(sorted, members)
		sort.SliceStable(sorted, func(i, j int) bool {
			si, sj := sorted[i].StartNs, sorted[j].StartNs
			if si == nil {
				return false
			}
			if sj == nil {
				return true
			}
			return *si < *sj
		})

		var startNs *int64
		var durationNs *int64
		for _, step := range sorted {
			if step.StartNs != nil && (startNs == nil || *step.StartNs < *startNs) {
				v := *step.StartNs
				startNs = &v
			}
			if step.DurationNs != nil {
				if durationNs == nil {
					durationNs = new(int64)
				}
				*durationNs += *step.DurationNs
			}
		}

		interactions = append(interactions, Interaction{
			ID:         id,
			Steps:      sorted,
			StartNs:    startNs,
			DurationNs: durationNs,
			GroupID:    groupID,
		})
	}
	return interactions
}

// BuildGroups derives groups from a flat step collection by first building
// interactions, then bucketing them by group id. Interactions without a group
// id all land in the reserved DefaultGroupID bucket.
func BuildGroups(steps []Step) []Group {
	interactions := BuildInteractions(steps)

	buckets := make(map[string][]Interaction)
	var order []string
	for _, interaction := range interactions {
		key := DefaultGroupID
		if interaction.GroupID != nil {
			key = *interaction.GroupID
		}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], interaction)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{ID: key, Interactions: buckets[key]})
	}
	return groups
}

// ObjectsAt returns the raw objects for a granularity, derived from the step set.
func ObjectsAt(kind Kind, steps []Step) []Object {
	switch kind {
	case KindStep:
		objects := make([]Object, 0, len(steps))
		for _, s := range steps {
			objects = append(objects, StepObject(s))
		}
		return objects
	case KindInteraction:
		interactions := BuildInteractions(steps)
		objects := make([]Object, 0, len(interactions))
		for _, i := range interactions {
			objects = append(objects, InteractionObject(i))
		}
		return objects
	case KindGroup:
		groups := BuildGroups(steps)
		objects := make([]Object, 0, len(groups))
		for _, g := range groups {
			objects = append(objects, GroupObject(g))
		}
		return objects
	}
	return nil
}
