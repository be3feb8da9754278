package toolexec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"
)

// CacheKey derives the result cache key for a tool call: the hex SHA-256
// digest of the canonical JSON encoding of {"args": args, "tool": name}.
//
// Contract:
//   - The mapping is deterministic: two argument maps with the same contents
//     produce the same key regardless of construction order.
//   - Object keys are emitted in ascending byte order at every nesting level.
//   - Encoding is compact (no whitespace) and ASCII-only: runes outside
//     [0x20, 0x7F) are written as \uXXXX escapes, with surrogate pairs for
//     runes beyond the basic multilingual plane.
func CacheKey(name string, args map[string]any) string {
	var buf bytes.Buffer
	buf.WriteString(`{"args":`)
	writeCanonical(&buf, args)
	buf.WriteString(`,"tool":`)
	writeCanonicalString(&buf, name)
	buf.WriteByte('}')
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// writeCanonical appends the canonical JSON encoding of v. Maps and slices
// recurse; scalars defer to encoding/json, which is deterministic for them.
func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, elem)
		}
		buf.WriteByte(']')
	case string:
		writeCanonicalString(buf, val)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			buf.Write(val)
			return
		}
		writeCanonical(buf, decoded)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			// Unencodable values still need a deterministic representation.
			writeCanonicalString(buf, fmt.Sprintf("%v", val))
			return
		}
		buf.Write(raw)
	}
}

// writeCanonicalString appends s as a JSON string literal with ASCII-only
// escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(buf, `\u%04x`, r)
			case r < 0x80:
				buf.WriteRune(r)
			case r > 0xFFFF:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(buf, `\u%04x`, r)
			}
		}
	}
	buf.WriteByte('"')
}
