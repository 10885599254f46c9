package cos

import (
	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

// shortIDAlphabet mirrors the teacher's own alphabet in cmn/cos/uuid.go,
// chosen there to stay clear of shell/URL metacharacters.
const shortIDAlphabet = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

// shortGen mints short, human-typed debug tags (class names, filter handle
// labels) the way the teacher's cmn/cos/uuid.go mints daemon/proxy ids:
// cheap, readable, not cryptographically unique across processes.
var shortGen = shortid.MustNew(4 /*worker*/, shortIDAlphabet, 1 /*seed*/)

// GenShortID returns a short, readable id suitable for a filter handle or a
// class debug tag.
func GenShortID() string {
	id, err := shortGen.Generate()
	if err != nil {
		// Degrade rather than panic: callers of GenShortID are never on a
		// path where a missing debug tag is fatal.
		return "id-unavailable"
	}
	return id
}

// GenGUID mints a subprogram GUID (spec §3.4): a real UUID, because
// subprogram ids must serialize as a UUID string (spec §6.2) and must be
// safely generated in a multi-subprogram system without coordination.
func GenGUID() uuid.UUID { return uuid.New() }

// HashKey combines a kind tag and a payload into a stable 64-bit key,
// used to bucket the signature intern map (sym) on a composite identity
// without building an intermediate string per lookup, following
// the hashing choice ("similar to the shortid.DEFAULT_ABC"-adjacent
// OneOfOne/xxhash import) in the teacher's cmn/cos/uuid.go.
func HashKey(kind byte, payload []byte) uint64 {
	h := xxhash.New64()
	h.Write([]byte{kind})
	h.Write(payload)
	return h.Sum64()
}
