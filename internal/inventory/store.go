package inventory

import "slices"

// record is implemented by the stored entity types.
type record interface {
	comparable
	key() string
	label() string
}

// orderedStore holds records in insertion order.
//
// Lookups are linear. When legacy wraparound has produced duplicate identifiers the first
// record in insertion order wins.
type orderedStore[T record] struct {
	items []T
}

// find returns the first record with the given identifier.
func (s *orderedStore[T]) find(id string) (T, bool) {
	i := s.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// findByName returns the first record with exactly the given name.
func (s *orderedStore[T]) findByName(name string) (T, bool) {
	for _, item := range s.items {
		if item.label() == name {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// nameTaken reports whether a record other than self uses name.
func (s *orderedStore[T]) nameTaken(name string, self T) bool {
	for _, item := range s.items {
		if item.label() == name && item != self {
			return true
		}
	}
	return false
}

// has reports whether any record carries the identifier.
func (s *orderedStore[T]) has(id string) bool {
	return s.indexOf(id) >= 0
}

func (s *orderedStore[T]) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(item T) bool { return item.key() == id })
}

func (s *orderedStore[T]) add(item T) {
	s.items = append(s.items, item)
}

// remove deletes the given record.
func (s *orderedStore[T]) remove(item T) bool {
	i := slices.Index(s.items, item)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *orderedStore[T]) len() int {
	return len(s.items)
}

func (s *orderedStore[T]) all() []T {
	return s.items
}
