package monitor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/ugorji/go/codec"
)

// QuorumSet is the set of validators, with threshold, that a node requires
// agreement from. InnerSets allow nested quorum structures.
type QuorumSet struct {
	Threshold  int
	Validators []string
	InnerSets  []*QuorumSet
}

// Hash returns a hex-encoded content hash of the quorum set. Two quorum sets
// with the same threshold and the same validators, regardless of order,
// produce the same hash. The hash is used as the identity of the quorum set
// when deciding whether a node's configuration changed.
func (q *QuorumSet) Hash() string {
	if q == nil {
		return ""
	}
	return hashValue(q.normalized())
}

// normalized returns a copy with validators sorted and inner sets normalized
// recursively, so that the hash is insensitive to ordering.
func (q *QuorumSet) normalized() *QuorumSet {
	n := &QuorumSet{
		Threshold:  q.Threshold,
		Validators: append([]string{}, q.Validators...),
	}
	sort.Strings(n.Validators)
	for _, inner := range q.InnerSets {
		n.InnerSets = append(n.InnerSets, inner.normalized())
	}
	sort.Slice(n.InnerSets, func(i, j int) bool {
		return n.InnerSets[i].Hash() < n.InnerSets[j].Hash()
	})
	return n
}

// AllValidators returns the validators of the quorum set and all its inner
// sets, deduplicated.
func (q *QuorumSet) AllValidators() []string {
	if q == nil {
		return nil
	}
	seen := map[string]bool{}
	res := []string{}
	var walk func(qs *QuorumSet)
	walk = func(qs *QuorumSet) {
		for _, v := range qs.Validators {
			if !seen[v] {
				seen[v] = true
				res = append(res, v)
			}
		}
		for _, inner := range qs.InnerSets {
			walk(inner)
		}
	}
	walk(q)
	return res
}

// hashValue encodes v with the canonical codec JsonHandle and returns the
// hex-encoded SHA256 of the encoding.
func hashValue(v interface{}) string {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	sum := sha256.Sum256(b.Bytes())
	return hex.EncodeToString(sum[:])
}
