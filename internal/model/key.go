package model

import (
	"encoding/hex"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// EventKeyPrefix namespaces event record keys.
const EventKeyPrefix = "evt:"

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): map keys
// are sorted, so the same fields always encode to the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("model: CBOR encoder initialization failed: " + err.Error())
	}
}

type keyMaterial struct {
	Fields   map[string]string `cbor:"fields"`
	Channels []string          `cbor:"channels"`
}

// ContentKey returns the record key of e filed under channels. The key
// depends on every stored field and on the set of folded channel
// names, not on their order or spelling.
func ContentKey(e Event, channels []string) string {
	return ContentKeyFields(e.Fields(), channels)
}

// ContentKeyFields is ContentKey over an already flattened field map.
func ContentKeyFields(fields map[string]string, channels []string) string {
	b, err := encMode.Marshal(keyMaterial{
		Fields:   fields,
		Channels: CanonicalChannels(channels),
	})
	if err != nil {
		// Strings and string maps always encode.
		panic("model: encode key material: " + err.Error())
	}
	hasher := blake3.New()
	hasher.Write(b)
	return EventKeyPrefix + hex.EncodeToString(hasher.Sum(nil))
}

// CanonicalChannels folds, sorts and de-duplicates channel names.
func CanonicalChannels(channels []string) []string {
	seen := make(map[string]bool, len(channels))
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		folded := Fold(ch)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, folded)
	}
	sort.Strings(out)
	return out
}
