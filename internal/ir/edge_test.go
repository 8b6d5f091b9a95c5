package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdgeRef(t *testing.T) {
	tests := []struct {
		input    string
		want     EdgeRef
		explicit bool
	}{
		{"in", EdgeRef{Name: "in"}, false},
		{"IMAGE:input_video", EdgeRef{Tag: "IMAGE", Name: "input_video"}, false},
		{"PACKET:3:string_packet", EdgeRef{Tag: "PACKET", Index: 3, Name: "string_packet"}, true},
		{"_X:0:_y", EdgeRef{Tag: "_X", Name: "_y"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, explicit, err := ParseEdgeRef(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
			assert.Equal(t, tt.explicit, explicit)
		})
	}
}

func TestParseEdgeRefErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"image:frame",
		"TAG:-1:frame",
		"TAG:x:frame",
		"A:1:b:c",
		"TAG:1frame",
		"TAG:",
	} {
		t.Run(input, func(t *testing.T) {
			_, _, err := ParseEdgeRef(input)
			var edgeErr *EdgeError
			require.ErrorAs(t, err, &edgeErr)
			assert.Equal(t, input, edgeErr.Value)
		})
	}
}

func TestParseEdgeListNumbersUntagged(t *testing.T) {
	refs, err := ParseEdgeList([]string{"a", "IMAGE:img", "b"})
	require.NoError(t, err)
	assert.Equal(t, []EdgeRef{
		{Name: "a", Index: 0},
		{Tag: "IMAGE", Name: "img"},
		{Name: "b", Index: 1},
	}, refs)
}

func TestParseEdgeListRejectsDuplicatePort(t *testing.T) {
	_, err := ParseEdgeList([]string{"IMAGE:a", "IMAGE:b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bound more than once")
}

func TestParseEdgeListRejectsGap(t *testing.T) {
	_, err := ParseEdgeList([]string{"PACKET:0:a", "PACKET:2:c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contiguous")
}

func TestParseEdgeListExplicitIndices(t *testing.T) {
	refs, err := ParseEdgeList([]string{"PACKET:1:b", "PACKET:0:a"})
	require.NoError(t, err)
	assert.Equal(t, 1, refs[0].Index)
	assert.Equal(t, 0, refs[1].Index)
}

func TestParseTagIndex(t *testing.T) {
	tests := []struct {
		input string
		want  TagIndex
	}{
		{"LOOP", TagIndex{Tag: "LOOP"}},
		{"LOOP:2", TagIndex{Tag: "LOOP", Index: 2}},
		{":1", TagIndex{Index: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTagIndex(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "loop", "LOOP:x", ":-1"} {
		_, err := ParseTagIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestEdgeRefString(t *testing.T) {
	assert.Equal(t, "in", EdgeRef{Name: "in"}.String())
	assert.Equal(t, "IMAGE:img", EdgeRef{Tag: "IMAGE", Name: "img"}.String())
	assert.Equal(t, "PACKET:2:p", EdgeRef{Tag: "PACKET", Index: 2, Name: "p"}.String())
	assert.Equal(t, ":1", TagIndex{Index: 1}.String())
}
