package libcbm

// Interner builds stable, dense integer ids for arbitrary string-keyed
// tuples so that matrix batches can be compactly stored and selected by
// index rather than by re-hashing a key on every lookup (spec.md §4.5).
// The first key interned gets id 0, the second id 1, and so on; the same
// key always maps to the same id for the lifetime of the Interner.
type Interner struct {
	ids  map[string]int
	keys []string
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]int)}
}

// Intern returns the dense id for key, assigning a new one if key has
// not been seen before.
func (in *Interner) Intern(key string) int {
	if id, ok := in.ids[key]; ok {
		return id
	}
	id := len(in.keys)
	in.ids[key] = id
	in.keys = append(in.keys, key)
	return id
}

// Len returns the number of distinct keys interned so far.
func (in *Interner) Len() int { return len(in.keys) }

// Key returns the key originally interned for id.
func (in *Interner) Key(id int) string { return in.keys[id] }
