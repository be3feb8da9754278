package toolexec

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCacheKeyShape(t *testing.T) {
	key := CacheKey("weather", map[string]any{"city": "Paris", "days": 5})
	require.Regexp(t, hexDigest, key)
}

func TestCacheKeyIgnoresConstructionOrder(t *testing.T) {
	a := map[string]any{}
	a["city"] = "Paris"
	a["window"] = map[string]any{"start": "2025-06-01", "end": "2025-06-05"}
	a["themes"] = []any{"art", "food"}

	b := map[string]any{}
	b["themes"] = []any{"art", "food"}
	b["window"] = map[string]any{"end": "2025-06-05", "start": "2025-06-01"}
	b["city"] = "Paris"

	require.Equal(t, CacheKey("weather", a), CacheKey("weather", b))
}

func TestCacheKeySensitivity(t *testing.T) {
	base := map[string]any{"city": "Paris", "days": 5}
	key := CacheKey("weather", base)

	require.NotEqual(t, key, CacheKey("flights", base), "tool name must feed the key")
	require.NotEqual(t, key, CacheKey("weather", map[string]any{"city": "Paris", "days": 6}))
	require.NotEqual(t, key, CacheKey("weather", map[string]any{"city": "Paris"}))
	require.NotEqual(t, key, CacheKey("weather", map[string]any{"city": "Paris", "days": 5, "units": "C"}))
}

func TestCanonicalEncoding(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, `null`},
		{"bool", true, `true`},
		{"int", 42, `42`},
		{"string", "plain", `"plain"`},
		{"sorted keys", map[string]any{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"nested sort", map[string]any{"z": map[string]any{"y": nil, "x": false}}, `{"z":{"x":false,"y":null}}`},
		{"array order kept", []any{"b", "a"}, `["b","a"]`},
		{"latin-1 escape", "café", `"café"`},
		{"astral escape", "\U0001F680", `"🚀"`},
		{"control escape", "a\nb", `"a\nb"`},
		{"quote and backslash", `a"\b`, `"a\"\\b"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeCanonical(&buf, tc.in)
			require.Equal(t, tc.want, buf.String())
		})
	}
}

func TestCanonicalEncodingWholeKeyPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"args":`)
	writeCanonical(&buf, map[string]any{"b": 2, "a": []any{true, nil, "café"}})
	buf.WriteString(`,"tool":`)
	writeCanonicalString(&buf, "weather")
	buf.WriteByte('}')
	require.Equal(t, `{"args":{"a":[true,null,"café"],"b":2},"tool":"weather"}`, buf.String())
}

func TestCacheKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("insertion order never changes the key", prop.ForAll(
		func(tool string, keys []string, num int64, flag bool) bool {
			forward := make(map[string]any)
			for _, k := range keys {
				forward["f_"+k] = "v-" + k
			}
			forward["nested"] = map[string]any{"flag": flag, "n": num}

			reverse := make(map[string]any)
			reverse["nested"] = map[string]any{"n": num, "flag": flag}
			for i := len(keys) - 1; i >= 0; i-- {
				reverse["f_"+keys[i]] = "v-" + keys[i]
			}

			return CacheKey(tool, forward) == CacheKey(tool, reverse)
		},
		gen.Identifier(),
		gen.SliceOf(gen.Identifier()),
		gen.Int64(),
		gen.Bool(),
	))

	properties.Property("distinct scalar values produce distinct keys", prop.ForAll(
		func(tool, field, a, b string) bool {
			if a == b {
				return true
			}
			ka := CacheKey(tool, map[string]any{field: a})
			kb := CacheKey(tool, map[string]any{field: b})
			return ka != kb
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("key is always a 64-digit hex digest", prop.ForAll(
		func(tool, field, value string) bool {
			return hexDigest.MatchString(CacheKey(tool, map[string]any{field: value}))
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
