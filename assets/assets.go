// Package assets models the script and style resources a page has loaded.
//
// A Snapshot is a point-in-time photo of those resources; Diff computes what
// appeared between two snapshots. Capture itself lives with the
// browser layer; this package is pure data so diffs stay testable without
// Chrome.
package assets

// Record identifies a single loaded script or stylesheet resource.
// The ID is opaque to this package; within one Snapshot it is unique.
type Record struct {
	ID string `json:"id"`
}

// Snapshot is an ordered sequence of Records taken at one instant.
// Snapshots are immutable once captured: capture sites must hand out a
// fresh slice, never a view into live page state.
type Snapshot []Record

// IDs returns the ids in snapshot order.
func (s Snapshot) IDs() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.ID
	}
	return out
}

// Clone returns an independent copy of the snapshot.
func Clone(s Snapshot) Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// FromIDs builds a Snapshot from raw ids, preserving order.
func FromIDs(ids []string) Snapshot {
	if len(ids) == 0 {
		return Snapshot{}
	}
	out := make(Snapshot, len(ids))
	for i, id := range ids {
		out[i] = Record{ID: id}
	}
	return out
}

// Diff returns the records present in after whose ID does not appear in
// before. Order follows after. Identity is by ID only, no deduplication
// beyond that.
//
// Diff(S, S) is empty for any S; Diff(empty, S) == S; Diff(S, empty) is empty.
func Diff(before, after Snapshot) Snapshot {
	known := make(map[string]struct{}, len(before))
	for _, r := range before {
		known[r.ID] = struct{}{}
	}

	out := Snapshot{}
	for _, r := range after {
		if _, ok := known[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}
