package travel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriStateMarshalJSON(t *testing.T) {
	cases := []struct {
		name string
		in   TriState
		want string
	}{
		{"yes", Yes, "true"},
		{"no", No, "false"},
		{"unknown", Unknown, "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(b))
		})
	}
}

func TestTriStateUnmarshalJSON(t *testing.T) {
	var v struct {
		Indoor TriState `json:"indoor"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"indoor":true}`), &v))
	require.Equal(t, Yes, v.Indoor)

	require.NoError(t, json.Unmarshal([]byte(`{"indoor":false}`), &v))
	require.Equal(t, No, v.Indoor)

	require.NoError(t, json.Unmarshal([]byte(`{"indoor":null}`), &v))
	require.Equal(t, Unknown, v.Indoor)

	require.Error(t, json.Unmarshal([]byte(`{"indoor":"maybe"}`), &v))
}

func TestTriStateZeroValueIsUnknown(t *testing.T) {
	var v TriState
	require.Equal(t, Unknown, v)
	require.False(t, v.Known())

	_, known := v.Bool()
	require.False(t, known)
}

func TestTriFromBoolPtr(t *testing.T) {
	require.Equal(t, Unknown, TriFromBoolPtr(nil))
	yes := true
	require.Equal(t, Yes, TriFromBoolPtr(&yes))
	no := false
	require.Equal(t, No, TriFromBoolPtr(&no))
}
