// Builds the grouped projection of the logical sequence.

package rows

import (
	"slices"
	"strconv"
)

// SetGroupBy groups loaded rows by fields, outermost first.
//
// An empty fields removes grouping and returns to the raw sequence.
// Assigning fields forgets every group's expansion state.
func (s *Store) SetGroupBy(fields []string) {
	s.expanded = make(map[string]bool)
	if len(fields) == 0 {
		s.groupBy = nil
		s.grouped = nil
		return
	}
	s.groupBy = slices.Clone(fields)
	s.rebuildGroups()
}

// GroupBy returns the active grouping fields.
func (s *Store) GroupBy() []string {
	return slices.Clone(s.groupBy)
}

// IsGrouped reports whether grouping is active.
func (s *Store) IsGrouped() bool {
	return len(s.groupBy) != 0
}

// ToggleGroupExpanded flips the expansion state of the group with key.
func (s *Store) ToggleGroupExpanded(key string) {
	s.expanded[key] = !s.isExpanded(key)
	s.rebuildGroups()
}

// SetDefaultExpanded sets the state of groups never toggled. Groups start
// expanded unless told otherwise.
func (s *Store) SetDefaultExpanded(expanded bool) {
	s.defaultExpanded = expanded
	s.rebuildGroups()
}

// Groups returns the top level groups of the current projection.
func (s *Store) Groups() []*GroupHeader {
	var out []*GroupHeader
	for i := range s.grouped {
		if sl := &s.grouped[i]; sl.Kind == KindGroup && sl.Group.Level == 0 {
			out = append(out, sl.Group)
		}
	}
	return out
}

func (s *Store) isExpanded(key string) bool {
	if v, ok := s.expanded[key]; ok {
		return v
	}
	return s.defaultExpanded
}

// rebuildGroups recomputes the grouped projection from the loaded rows.
func (s *Store) rebuildGroups() {
	if !s.IsGrouped() {
		s.grouped = nil
		return
	}
	var loaded []Slot
	for i := range s.seq.slots {
		if s.seq.slots[i].Kind == KindData {
			loaded = append(loaded, s.seq.slots[i])
		}
	}
	tree := s.buildGroupTree(loaded, 0, "", nil)
	out := make([]Slot, 0, len(tree)+len(loaded))
	s.grouped = flattenGroups(out, tree)
	for i := range s.grouped {
		s.grouped[i].Index = i
	}
}

// groupNode is a group header with the slots of its member rows.
type groupNode struct {
	header   *GroupHeader
	members  []Slot
	children []*groupNode
}

// buildGroupTree partitions rows by groupBy[level], keeping the order in
// which values are first seen, and recurses into each partition.
func (s *Store) buildGroupTree(rows []Slot, level int, parentKey string, path []GroupKey) []*groupNode {
	field := s.groupBy[level]
	var nodes []*groupNode
	byKey := make(map[string]*groupNode)
	for _, sl := range rows {
		value := stringify(sl.Row.Value(field))
		key := parentKey + "_" + strconv.Itoa(level) + "_" + value
		n := byKey[key]
		if n == nil {
			keys := append(slices.Clone(path), GroupKey{Title: field, Prop: field, Value: value})
			n = &groupNode{header: &GroupHeader{
				Key:      key,
				Level:    level,
				Expanded: s.isExpanded(key),
				Keys:     keys,
			}}
			byKey[key] = n
			nodes = append(nodes, n)
		}
		n.members = append(n.members, sl)
		n.header.Rows = append(n.header.Rows, sl.Row)
	}
	if level+1 < len(s.groupBy) {
		for _, n := range nodes {
			n.children = s.buildGroupTree(n.members, level+1, n.header.Key, n.header.Keys)
			n.header.Children = make([]*GroupHeader, len(n.children))
			for i, c := range n.children {
				n.header.Children[i] = c.header
			}
		}
	}
	return nodes
}

// flattenGroups appends headers depth first, followed by their children
// only when expanded.
func flattenGroups(out []Slot, nodes []*groupNode) []Slot {
	for _, n := range nodes {
		out = append(out, Slot{
			UID:      "group-" + n.header.Key,
			Expanded: n.header.Expanded,
			Kind:     KindGroup,
			Group:    n.header,
		})
		if !n.header.Expanded {
			continue
		}
		if n.children != nil {
			out = flattenGroups(out, n.children)
		} else {
			out = append(out, n.members...)
		}
	}
	return out
}
