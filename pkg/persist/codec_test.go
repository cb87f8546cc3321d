package persist_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/masonry/pkg/persist"
)

type card struct {
	Key     string    `json:"key"     yaml:"key"`
	Heights []float64 `json:"heights" yaml:"heights"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	in := card{Key: "hero", Heights: []float64{120, 80.5}}

	for _, codec := range []persist.Codec{persist.JSON, persist.YAML} {
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, in))

			out, err := persist.Read[card](codec, &buf)
			require.NoError(t, err)
			assert.Equal(t, in, *out)
		})
	}
}

func TestCodecs_PrettyPrint(t *testing.T) {
	t.Parallel()

	var js, ym bytes.Buffer

	require.NoError(t, persist.JSON.Encode(&js, card{Key: "a"}))
	require.NoError(t, persist.YAML.Encode(&ym, card{Key: "a", Heights: []float64{1}}))

	assert.Contains(t, js.String(), "\n  \"key\": \"a\"")
	assert.Contains(t, ym.String(), "heights:\n  - 1")
}

func TestCodecs_DecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codec persist.Codec
		input string
		msg   string
	}{
		{"json syntax", persist.JSON, `{"key":`, "json decode"},
		{"json unknown field", persist.JSON, `{"key":"a","hieghts":[1]}`, "hieghts"},
		{"yaml syntax", persist.YAML, "key: [unclosed", "yaml decode"},
		{"yaml unknown field", persist.YAML, "key: a\ncolour: red\n", "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := persist.Read[card](tt.codec, strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestJSON_EncodeError(t *testing.T) {
	t.Parallel()

	err := persist.JSON.Encode(&bytes.Buffer{}, make(chan int))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json encode")
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key    string
		byPath bool
		want   persist.Codec
	}{
		{"json", false, persist.JSON},
		{"YAML", false, persist.YAML},
		{"yml", false, persist.YAML},
		{"items.JSON", true, persist.JSON},
		{"dir/items.yml", true, persist.YAML},
		{"feed.yaml", true, persist.YAML},
	}

	for _, tt := range tests {
		lookup := persist.ByName
		if tt.byPath {
			lookup = persist.CodecFor
		}

		got, err := lookup(tt.key)
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.want.Name(), got.Name(), tt.key)
	}

	_, err := persist.ByName("csv")
	require.ErrorIs(t, err, persist.ErrUnknownFormat)

	_, err = persist.CodecFor("items.csv")
	require.ErrorIs(t, err, persist.ErrUnknownFormat)

	_, err = persist.CodecFor("json")
	require.ErrorIs(t, err, persist.ErrUnknownFormat, "a bare name has no extension")
}
