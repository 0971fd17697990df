package snapshot

// Meaningful reports whether an entry carries enough information to be
// worth including in the snapshot: non-empty text, at least one image
// URL, a status, or a date of its own. Entries failing all four are
// excluded from the snapshot but never touched at the source.
//
// The predicate is total: missing and null fields count as absent.
// Earlier revisions of the system required a timestamp; the permissive
// any-of-four policy is the current behavior.
func Meaningful(e Entry) bool {
	if e.Text != "" {
		return true
	}
	for _, urls := range e.Images {
		if len(urls) > 0 {
			return true
		}
	}
	if e.StatusSet {
		return true
	}
	return e.HasOwnDate
}
