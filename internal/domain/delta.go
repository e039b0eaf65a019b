package domain

// DeltaVarSet records variables added to and removed from a default set.
// Adding a removed variable cancels the removal and vice versa.
type DeltaVarSet struct {
	plus  *VarSet
	minus *VarSet
}

// NewDeltaVarSet returns an empty delta.
func NewDeltaVarSet() *DeltaVarSet {
	return &DeltaVarSet{plus: NewVarSet(), minus: NewVarSet()}
}

// Clone copies the delta.
func (d *DeltaVarSet) Clone() *DeltaVarSet {
	return &DeltaVarSet{plus: d.plus.Clone(), minus: d.minus.Clone()}
}

// Add shows v.
func (d *DeltaVarSet) Add(v string) {
	if d.minus.Has(v) {
		d.minus.Delete(v)
		return
	}

	d.plus.Add(v)
}

// Delete hides v.
func (d *DeltaVarSet) Delete(v string) {
	if d.plus.Has(v) {
		d.plus.Delete(v)
		return
	}

	d.minus.Add(v)
}

// ApplyTo returns base with the delta applied. Variables outside all are
// ignored in both directions.
func (d *DeltaVarSet) ApplyTo(base, all *VarSet) *VarSet {
	res := base.Clone()

	for _, v := range d.plus.Slice() {
		if all.Has(v) {
			res.Add(v)
		}
	}

	for _, v := range d.minus.Slice() {
		if all.Has(v) {
			res.Delete(v)
		}
	}

	return res
}

// Clear drops every recorded change.
func (d *DeltaVarSet) Clear() {
	d.plus.Clear()
	d.minus.Clear()
}

// Empty reports whether the delta is the identity.
func (d *DeltaVarSet) Empty() bool {
	return d.plus.Len() == 0 && d.minus.Len() == 0
}
