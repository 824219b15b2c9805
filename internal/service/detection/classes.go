package detection

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
)

// AllClassesKeyword selects every class the detector knows.
const AllClassesKeyword = "all"

// ClassFilter selects which detector classes are reported. The zero value
// selects nothing.
type ClassFilter struct {
	all bool
	ids map[int]struct{}
}

// AllClasses returns a filter that lets every class through.
func AllClasses() ClassFilter {
	return ClassFilter{all: true}
}

// OnlyClasses returns a filter for the given ids.
func OnlyClasses(ids ...int) ClassFilter {
	f := ClassFilter{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f
}

// ParseClasses resolves a class selection against the detector labels.
// "" selects nothing, "all" selects everything, otherwise the comma separated
// names or numeric ids are matched case-insensitively and unknown names dropped.
func ParseClasses(selection string, labels map[int]string) ClassFilter {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return ClassFilter{}
	}
	if strings.EqualFold(selection, AllClassesKeyword) {
		return AllClasses()
	}

	byName := make(map[string]int, len(labels))
	for id, name := range labels {
		byName[strings.ToLower(name)] = id
	}

	var ids []int
	for _, token := range strings.Split(selection, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if id, err := strconv.Atoi(token); err == nil && id >= 0 {
			ids = append(ids, id)
			continue
		}
		if id, ok := byName[token]; ok {
			ids = append(ids, id)
		}
	}
	return OnlyClasses(ids...)
}

// All reports whether the filter is unrestricted.
func (f ClassFilter) All() bool {
	return f.all
}

// Empty reports whether the filter selects nothing, in which case inference
// can be skipped.
func (f ClassFilter) Empty() bool {
	return !f.all && len(f.ids) == 0
}

// Allows reports whether class id passes the filter.
func (f ClassFilter) Allows(id int) bool {
	if f.all {
		return true
	}
	_, ok := f.ids[id]
	return ok
}

// IDs returns the selected ids in ascending order; nil for an unrestricted filter.
func (f ClassFilter) IDs() []int {
	if f.all {
		return nil
	}
	ids := make([]int, 0, len(f.ids))
	for id := range f.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Apply keeps the detections that pass the filter, preserving order.
func (f ClassFilter) Apply(dets []dto.DetectionResult) []dto.DetectionResult {
	if f.all {
		return dets
	}
	out := dets[:0:0]
	for _, d := range dets {
		if f.Allows(d.ClassID) {
			out = append(out, d)
		}
	}
	return out
}
