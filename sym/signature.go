package sym

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
)

// SignatureID is a dense small integer identifying an interned message
// signature — the key type used by flotalk.Table (spec §4.1, §4.2).
type SignatureID int

// Signature is either Unary(symbol) or Keyword([symbols...]) (spec §3.1).
// The zero value is not a valid signature; always obtain one via
// NewUnary/NewKeyword.
type Signature struct {
	unary    bool
	keywords []ID
}

func NewUnary(s ID) Signature { return Signature{unary: true, keywords: []ID{s}} }

// NewKeyword builds a keyword signature from the sequence of keyword
// symbols, e.g. `at:put:` interns as the two-symbol sequence [at, put].
func NewKeyword(symbols ...ID) Signature {
	cp := make([]ID, len(symbols))
	copy(cp, symbols)
	return Signature{unary: false, keywords: cp}
}

func (s Signature) IsUnary() bool { return s.unary }
func (s Signature) Symbols() []ID {
	cp := make([]ID, len(s.keywords))
	copy(cp, s.keywords)
	return cp
}

// String renders a human-readable selector, e.g. "at:put:" or "printString".
func (s Signature) String() string {
	names := make([]string, len(s.keywords))
	for i, id := range s.keywords {
		name, _ := Lookup(id)
		names[i] = name
	}
	if s.unary {
		if len(names) == 0 {
			return ""
		}
		return names[0]
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte(':')
	}
	return b.String()
}

// hashPayload encodes the symbol-id vector as big-endian uint64s, the byte
// form cos.HashKey hashes into the signature table's bucket key (spec §4.1:
// "the keyword sequence is compared by full symbol-id vector").
func (s Signature) hashPayload() []byte {
	buf := make([]byte, 8*len(s.keywords))
	for i, id := range s.keywords {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(id))
	}
	return buf
}

func (s Signature) kindByte() byte {
	if s.unary {
		return 'u'
	}
	return 'k'
}

// equalSignature is the exact, hash-collision-safe comparison InternSignature
// falls back to once it has narrowed candidates down to one hash bucket.
func equalSignature(a, b Signature) bool {
	if a.unary != b.unary || len(a.keywords) != len(b.keywords) {
		return false
	}
	for i := range a.keywords {
		if a.keywords[i] != b.keywords[i] {
			return false
		}
	}
	return true
}

// sigEntry pairs an interned signature with its dense id inside a hash
// bucket; a bucket can hold more than one entry when two distinct
// signatures' hashPayloads collide under cos.HashKey.
type sigEntry struct {
	sig Signature
	id  SignatureID
}

type sigTable struct {
	mu      sync.RWMutex
	buckets map[uint64][]sigEntry
	sig     []Signature
}

var signatures = &sigTable{buckets: make(map[uint64][]sigEntry, 256)}

// InternSignature interns a signature and returns its dense id. Equal
// signatures (same kind, same symbol-id sequence) always return the same id
// (spec §8.1 invariant: intern(s1) == intern(s2) iff s1 == s2). Lookup hashes
// the signature into a bucket with cos.HashKey, then resolves the exact
// signature within that bucket — a hash collision costs an extra comparison,
// never a false match.
func InternSignature(s Signature) SignatureID {
	h := cos.HashKey(s.kindByte(), s.hashPayload())

	signatures.mu.RLock()
	for _, e := range signatures.buckets[h] {
		if equalSignature(e.sig, s) {
			signatures.mu.RUnlock()
			return e.id
		}
	}
	signatures.mu.RUnlock()

	signatures.mu.Lock()
	defer signatures.mu.Unlock()
	// Re-check: another writer may have interned it while we waited for
	// the write lock.
	for _, e := range signatures.buckets[h] {
		if equalSignature(e.sig, s) {
			return e.id
		}
	}
	id := SignatureID(len(signatures.sig))
	signatures.sig = append(signatures.sig, s)
	signatures.buckets[h] = append(signatures.buckets[h], sigEntry{sig: s, id: id})
	return id
}

// LookupSignature returns the Signature for id, and false if never interned.
func LookupSignature(id SignatureID) (Signature, bool) {
	signatures.mu.RLock()
	defer signatures.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(signatures.sig) {
		return Signature{}, false
	}
	return signatures.sig[id], true
}
