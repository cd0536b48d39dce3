package service

import (
	"encoding/json"
	"hash/fnv"

	id "kinship/pkg/domain"
)

const lineageShards = 64

// lockLineage serializes, per family, the operations that check a member's
// generation or gender against relatives they do not lock: profile edits
// touching either field, and restores. Taken before any pair transaction.
func (s *Service) lockLineage(familyID id.FamilyID) func() {
	h := fnv.New32a()
	_, _ = h.Write(familyID[:])
	mu := &s.lineage[h.Sum32()%lineageShards]
	mu.Lock()
	return mu.Unlock
}

// touchesLineage reports whether a merge patch names generation or gender.
// Malformed patches report false and fail later in ApplyPatch.
func touchesLineage(patch []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return false
	}
	_, generation := fields["generation"]
	_, gender := fields["gender"]
	return generation || gender
}
