package resolver

// LinkPair is a deferred assignability query: at link time, the embedding
// runtime must pose "is sub assignable to super" to the Resolver again and
// treat a No the same as if it had failed during verification (spec §4.1
// "Deferred link recording").
type LinkPair struct {
	Sub, Super string
}

// DeferredLinkRecorder accumulates link pairs for a class whose
// verification ran with the resolver in record-only mode
// (class_relationship_verifier, spec §6.3). It is per-class, not
// per-method: §4.1 says recorded queries populate "a per-class snippet
// table".
type DeferredLinkRecorder struct {
	pairs []LinkPair
	seen  map[LinkPair]bool
}

// NewDeferredLinkRecorder returns an empty recorder.
func NewDeferredLinkRecorder() *DeferredLinkRecorder {
	return &DeferredLinkRecorder{seen: make(map[LinkPair]bool)}
}

// Record adds (sub, super) to the table if it isn't already present.
// Returns true if this was a new entry.
func (d *DeferredLinkRecorder) Record(sub, super string) bool {
	p := LinkPair{sub, super}
	if d.seen[p] {
		return false
	}
	d.seen[p] = true
	d.pairs = append(d.pairs, p)
	return true
}

// Pairs returns the accumulated link pairs in the order they were first
// recorded.
func (d *DeferredLinkRecorder) Pairs() []LinkPair {
	return d.pairs
}

// Empty reports whether any pair has been recorded for this class.
func (d *DeferredLinkRecorder) Empty() bool {
	return len(d.pairs) == 0
}
