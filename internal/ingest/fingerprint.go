package ingest

import (
	"fmt"

	"github.com/reweave/reweave/internal/thread"
)

// Fingerprint identifies a batch by its content rather than its file name,
// so a renamed copy of the same export is still recognized as a duplicate.
type Fingerprint struct {
	GroupID int64
	FirstID int64
	LastID  int64
	Count   int
}

// BuildFingerprint derives a fingerprint from an id-ascending batch.
func BuildFingerprint(group thread.GroupInfo, msgs []thread.Message) Fingerprint {
	fp := Fingerprint{GroupID: group.GroupID, Count: len(msgs)}
	if len(msgs) > 0 {
		fp.FirstID = msgs[0].ID
		fp.LastID = msgs[len(msgs)-1].ID
	}
	return fp
}

// Key renders the fingerprint as a stable state-file entry.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%d:%d-%d:%d", f.GroupID, f.FirstID, f.LastID, f.Count)
}
