package library

import "strconv"

// idFloor is the counter value before any item id has been handed out.
const idFloor = 100

// IDAllocator hands out numeric item identifiers in increasing order.
type IDAllocator struct {
	last int64
}

func NewIDAllocator() *IDAllocator { return &IDAllocator{last: idFloor} }

// Next returns an id greater than every id allocated or restored so far.
func (a *IDAllocator) Next() string {
	a.last++
	return strconv.FormatInt(a.last, 10)
}

// RestoreFromExisting moves the counter past the largest numeric id in items.
// Ids that do not parse as integers are ignored. The counter never moves back.
func (a *IDAllocator) RestoreFromExisting(items []*Item) {
	highest := int64(idFloor)
	for _, it := range items {
		if it == nil {
			continue
		}
		n, err := strconv.ParseInt(it.ID, 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	if highest > a.last {
		a.last = highest
	}
}
