package pe

import "sort"

// StringRef is one piece of text and every instruction that loads its address.
type StringRef struct {
	Text     []byte   // Raw bytes in the binary's native encoding, no terminator.
	Virtual  uint32   // Loaded-image address of the text.
	Physical uint32   // File offset of the text; 0 when not yet known.
	Xrefs    []uint32 // File offsets of referencing instructions.
}

// StringTable maps virtual addresses to strings. Keys are unique.
type StringTable map[uint32]*StringRef

// Add inserts ref keyed by its virtual address, replacing any previous entry.
func (t StringTable) Add(ref *StringRef) {
	t[ref.Virtual] = ref
}

// Sorted returns the entries ordered by physical address.
func (t StringTable) Sorted() []*StringRef {
	refs := t.values()
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Physical != refs[j].Physical {
			return refs[i].Physical < refs[j].Physical
		}
		return refs[i].Virtual < refs[j].Virtual
	})
	return refs
}

// ByVirtual returns the entries ordered by virtual address.
func (t StringTable) ByVirtual() []*StringRef {
	refs := t.values()
	sort.Slice(refs, func(i, j int) bool { return refs[i].Virtual < refs[j].Virtual })
	return refs
}

// XrefCount returns the total number of references across the table.
func (t StringTable) XrefCount() int {
	n := 0
	for _, ref := range t {
		n += len(ref.Xrefs)
	}
	return n
}

func (t StringTable) values() []*StringRef {
	refs := make([]*StringRef, 0, len(t))
	for _, ref := range t {
		refs = append(refs, ref)
	}
	return refs
}
