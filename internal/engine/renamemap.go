package engine

// RenameMap maps an architectural register to the tag of the youngest
// in-flight instruction that writes it. Dispatch overwrites an entry each
// time it renames a new producer for a register; nothing ever removes an
// entry on retirement.
//
// That last point is intentional: a consumer dispatched after its producer
// has already retired will still find the producer's tag here. Issue's
// readiness check treats "tag is in the completed set" as ready regardless
// of whether the producer is still in the ROB, so a stale mapping is
// harmless — it just means Issue does one extra (cheap) set lookup instead
// of a map miss.
type RenameMap struct {
	m map[int]int
}

// newRenameMap returns an empty rename map.
func newRenameMap() *RenameMap {
	return &RenameMap{m: make(map[int]int)}
}

// Lookup returns the producer tag mapped to reg, and whether one exists.
func (r *RenameMap) Lookup(reg int) (tag int, ok bool) {
	tag, ok = r.m[reg]
	return tag, ok
}

// Set records that tag is now the youngest producer of reg, overwriting
// any previous mapping.
func (r *RenameMap) Set(reg, tag int) {
	r.m[reg] = tag
}
