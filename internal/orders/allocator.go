package orders

// MaxOrderNumber is the highest ticket number before the sequence wraps to 1.
// Wrapping can repeat a number still held by a very old active order.
const MaxOrderNumber = 9999

// Allocator hands out short ticket numbers. It is a value type so a
// repository transaction can copy it and discard the copy on failure.
type Allocator struct {
	last int
}

// NewAllocator resumes the sequence after last. Out-of-range values restart it.
func NewAllocator(last int) Allocator {
	if last < 0 || last > MaxOrderNumber {
		last = 0
	}
	return Allocator{last: last}
}

// Next advances the sequence and returns the new number.
func (a *Allocator) Next() int {
	a.last++
	if a.last > MaxOrderNumber {
		a.last = 1
	}
	return a.last
}

// Last returns the most recently allocated number, 0 if none.
func (a Allocator) Last() int { return a.last }

// seedCounter returns the highest order number across the given collections.
func seedCounter(lists ...[]Order) int {
	highest := 0
	for _, l := range lists {
		for _, o := range l {
			if o.OrderNumber > highest {
				highest = o.OrderNumber
			}
		}
	}
	return highest
}
