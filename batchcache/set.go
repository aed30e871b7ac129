package batchcache

import (
	"sort"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/watermark"
)

// Set is an insertion-ordered set of batch ids.
type Set struct {
	m *om.OrderedMap
}

func NewSet(ids ...string) *Set {
	s := &Set{m: om.NewOrderedMap()}
	s.Add(ids...)
	return s
}

// Add inserts ids, ignoring empty values and duplicates.
func (s *Set) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s.m.Set(id, id)
		}
	}
}

func (s *Set) Contains(id string) bool {
	_, ok := s.m.Get(id)
	return ok
}

func (s *Set) Len() int {
	return s.m.Len()
}

// Union returns a new set containing the members of s followed by any new members of o.
func (s *Set) Union(o *Set) *Set {
	retval := NewSet(s.IDs()...)
	retval.Add(o.IDs()...)
	return retval
}

// IDs returns the members in insertion order.
func (s *Set) IDs() []string {
	return helper.OrderedMapValuesToStringSlice(s.m)
}

// Sorted returns the members in chronological order.
// Ids that are not timestamps sort last, by name.
func (s *Set) Sorted() []string {
	return sortBatchIDs(s.IDs())
}

func sortBatchIDs(ids []string) []string {
	retval := make([]string, len(ids))
	copy(retval, ids)
	sort.SliceStable(retval, func(i, j int) bool {
		ti, erri := watermark.ParseBatchID(retval[i])
		tj, errj := watermark.ParseBatchID(retval[j])
		switch {
		case erri == nil && errj == nil:
			return ti.Before(tj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return retval[i] < retval[j]
		}
	})
	return retval
}
