package domain

// VarSet is an insertion-ordered set of variable names.
type VarSet struct {
	order []string
	index map[string]struct{}
}

// NewVarSet builds a set holding vars in order.
func NewVarSet(vars ...string) *VarSet {
	s := &VarSet{index: map[string]struct{}{}}
	for _, v := range vars {
		s.Add(v)
	}

	return s
}

// Add appends v unless present. Adding to a nil set does nothing.
func (s *VarSet) Add(v string) {
	if s == nil || s.Has(v) {
		return
	}

	if s.index == nil {
		s.index = map[string]struct{}{}
	}

	s.index[v] = struct{}{}
	s.order = append(s.order, v)
}

// Delete removes v.
func (s *VarSet) Delete(v string) {
	if !s.Has(v) {
		return
	}

	delete(s.index, v)

	for i, o := range s.order {
		if o == v {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Has reports whether v is present.
func (s *VarSet) Has(v string) bool {
	if s == nil {
		return false
	}

	_, ok := s.index[v]

	return ok
}

// Len returns the number of variables.
func (s *VarSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.order)
}

// Slice returns the variables in insertion order.
func (s *VarSet) Slice() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.order...)
}

// Clone copies the set.
func (s *VarSet) Clone() *VarSet {
	return NewVarSet(s.Slice()...)
}

// Clear empties the set.
func (s *VarSet) Clear() {
	s.order = nil
	s.index = map[string]struct{}{}
}
