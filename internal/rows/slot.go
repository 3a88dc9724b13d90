// Defines slots, the elements of the logical sequence.

package rows

import "strconv"

// Kind discriminates what a Slot holds.
type Kind uint8

const (
	// KindPlaceholder reserves room for a row of a page not loaded yet.
	KindPlaceholder Kind = iota
	// KindData holds a loaded row.
	KindData
	// KindGroup holds a group header; only found in the grouped projection.
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "placeholder"
	case KindData:
		return "data"
	case KindGroup:
		return "group"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Slot is one position of the logical sequence.
//
// Row is set for KindData, Group for KindGroup, neither for KindPlaceholder.
type Slot struct {
	UID      string
	Page     int
	Index    int
	Expanded bool
	Kind     Kind
	Row      Row
	Group    *GroupHeader
}

// IsPlaceholder reports whether the slot is reserved space.
func (s *Slot) IsPlaceholder() bool {
	return s.Kind == KindPlaceholder
}

// Data returns the payload of the slot: a Row, a *GroupHeader or nil.
func (s *Slot) Data() any {
	switch s.Kind {
	case KindData:
		return s.Row
	case KindGroup:
		return s.Group
	case KindPlaceholder:
		return nil
	default:
		return nil
	}
}

// GroupKey is one level of a group's path.
type GroupKey struct {
	Title string `json:"title"`
	Prop  string `json:"prop"`
	Value string `json:"value"`
}

// GroupHeader aggregates the rows sharing one value of a grouping field.
type GroupHeader struct {
	// Key is unique across siblings and nesting levels.
	Key   string
	Level int
	// Expanded is true when the group's children follow it in the projection.
	Expanded bool
	// Keys is the path of grouping values from the outermost group to this one.
	Keys []GroupKey
	// Rows are all member rows, in logical order.
	Rows []Row
	// Children are the nested groups when more grouping fields remain.
	Children []*GroupHeader
}

// Count returns the number of member rows.
func (g *GroupHeader) Count() int {
	return len(g.Rows)
}

func dataSlot(row Row, page, index int) Slot {
	return Slot{
		UID:   "row-" + strconv.Itoa(page) + "-" + strconv.Itoa(index),
		Page:  page,
		Index: index,
		Kind:  KindData,
		Row:   row,
	}
}
