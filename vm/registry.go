package vm

import (
	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Registry: arena of heap objects owned by one VM
// ---------------------------------------------------------------------------

type registrySlot struct {
	obj  bytecode.Object
	gen  uint32
	live bool
}

// Registry is an append-mostly arena of heap objects addressed by
// generation-checked handles. It belongs to exactly one VM and is never
// shared; there is no locking.
//
// Objects are only reclaimed by Collect or Release. A slot freed by Collect
// gets its generation bumped, so handles minted before the sweep stop
// resolving instead of aliasing the next occupant.
type Registry struct {
	slots []registrySlot
	free  []uint32
	live  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores obj and returns its handle.
func (r *Registry) Register(obj bytecode.Object) bytecode.Handle {
	r.live++
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		slot := &r.slots[idx]
		slot.obj = obj
		slot.live = true
		return bytecode.Handle{Index: idx, Gen: slot.gen}
	}
	r.slots = append(r.slots, registrySlot{obj: obj, live: true})
	return bytecode.Handle{Index: uint32(len(r.slots) - 1)}
}

// Lookup resolves h. ok is false for handles that were never issued or whose
// slot has since been reclaimed.
func (r *Registry) Lookup(h bytecode.Handle) (obj bytecode.Object, ok bool) {
	if int(h.Index) >= len(r.slots) {
		return nil, false
	}
	slot := r.slots[h.Index]
	if !slot.live || slot.gen != h.Gen {
		return nil, false
	}
	return slot.obj, true
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	return r.live
}

// Release drops every object at once.
func (r *Registry) Release() {
	r.slots = nil
	r.free = nil
	r.live = 0
}

// CollectStats holds statistics from a single sweep.
type CollectStats struct {
	Marked int
	Swept  int
	Live   int
}

// Collect frees every object not referenced by roots. Strings hold no
// references, so marking is a single pass over the roots.
func (r *Registry) Collect(roots []bytecode.Value) CollectStats {
	marks := make([]bool, len(r.slots))
	var stats CollectStats
	for _, v := range roots {
		if !v.IsObject() {
			continue
		}
		h := v.AsHandle()
		if _, ok := r.Lookup(h); ok && !marks[h.Index] {
			marks[h.Index] = true
			stats.Marked++
		}
	}

	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.live || marks[i] {
			continue
		}
		slot.obj = nil
		slot.live = false
		slot.gen++
		r.free = append(r.free, uint32(i))
		r.live--
		stats.Swept++
	}
	stats.Live = r.live
	return stats
}
