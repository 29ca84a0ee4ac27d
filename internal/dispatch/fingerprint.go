package dispatch

import (
	"encoding/hex"
	"sort"

	"github.com/spaolacci/murmur3"

	"github.com/arkilian/tabload/pkg/types"
)

// Fingerprint returns a hex digest identifying the set of items, independent
// of their order and multiplicity. Two strategies that collected results for
// the same files produce the same fingerprint.
func Fingerprint(items []types.WorkItem) string {
	ids := make([]string, 0, len(items))
	seen := make(map[types.WorkItem]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		ids = append(ids, string(item))
	}
	sort.Strings(ids)

	h := murmur3.New128()
	for i, id := range ids {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
