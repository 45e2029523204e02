package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atelier/internal/doc"
)

func TestSetTokens(t *testing.T) {
	e := newTestEngine(t)

	ch, err := e.SetTokens("colors", map[string]string{"primary": "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, DeltaTokensSet, ch.Events[0].Kind)
	assert.Equal(t, []string{doc.PartitionProject}, ch.Dirty)

	// Merge keeps existing keys.
	_, err = e.SetTokens("colors", map[string]string{"accent": "#00ff00"})
	require.NoError(t, err)
	snap := e.Snapshot()
	assert.Equal(t, "#ff0000", snap.Tokens["colors"]["primary"])
	assert.Equal(t, "#00ff00", snap.Tokens["colors"]["accent"])

	_, err = e.SetTokens("shadows", map[string]string{"low": "0 1px 2px"})
	require.Error(t, err)
	assert.True(t, IsInvalidOperation(err), "unknown category rejected")
}

func TestUpdateTokenWithPropagation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SetTokens("colors", map[string]string{"primary": "#ff0000"})
	require.NoError(t, err)
	_, err = e.BatchSetStyles([]StyleRule{
		{Selector: ".hero", Properties: map[string]string{"color": "#ff0000"}},
		{Selector: ".card", Properties: map[string]string{"border": "1px solid #ff0000"}},
		{Selector: ".overlay", Properties: map[string]string{"background": "#ff000080"}},
		{Selector: ".plain", Properties: map[string]string{"color": "#0000ff"}},
	})
	require.NoError(t, err)

	result, ch, err := e.UpdateTokenWithPropagation("colors", "primary", "#cc0000")
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedCount, "exact and embedded-with-boundary matches rewrite; longer values do not")

	snap := e.Snapshot()
	assert.Equal(t, "#cc0000", snap.Tokens["colors"]["primary"])
	assert.Equal(t, "#cc0000", snap.Styles[".hero"]["color"])
	assert.Equal(t, "1px solid #cc0000", snap.Styles[".card"]["border"])
	assert.Equal(t, "#ff000080", snap.Styles[".overlay"]["background"], "#ff000080 is a different color, not a token reference")
	assert.Equal(t, "#0000ff", snap.Styles[".plain"]["color"])

	// Token delta first, then one batched styles delta.
	require.Len(t, ch.Events, 2)
	assert.Equal(t, DeltaTokensSet, ch.Events[0].Kind)
	assert.Equal(t, DeltaStylesBatchSet, ch.Events[1].Kind)
	assert.ElementsMatch(t, []string{doc.PartitionProject, doc.PartitionStyles}, ch.Dirty)
}

func TestUpdateTokenPropagationIdempotent(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SetTokens("colors", map[string]string{"primary": "#ff0000"})
	require.NoError(t, err)
	_, err = e.SetStyles(".hero", map[string]string{"color": "#ff0000"})
	require.NoError(t, err)

	first, _, err := e.UpdateTokenWithPropagation("colors", "primary", "#cc0000")
	require.NoError(t, err)
	assert.Equal(t, 1, first.UpdatedCount)

	// Same value again: no-op, nothing dirty, nothing published.
	second, ch, err := e.UpdateTokenWithPropagation("colors", "primary", "#cc0000")
	require.NoError(t, err)
	assert.Equal(t, 0, second.UpdatedCount)
	assert.Empty(t, ch.Events)
	assert.Empty(t, ch.Dirty)
	assert.Equal(t, "#cc0000", e.Snapshot().Styles[".hero"]["color"])
}

func TestUpdateTokenPropagationErrors(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.UpdateTokenWithPropagation("colors", "primary", "#cc0000")
	assert.True(t, IsNotFound(err), "unset token is NOT_FOUND")

	_, _, err = e.UpdateTokenWithPropagation("shadows", "low", "x")
	assert.True(t, IsInvalidOperation(err))
}

func TestReplaceTokenValueBoundaries(t *testing.T) {
	cases := []struct {
		s, old, new string
		want        string
		rewrote     bool
	}{
		{"#fff", "#fff", "#000", "#000", true},
		{"#ffffff", "#fff", "#000", "#ffffff", false},
		{"1px solid #fff", "#fff", "#000", "1px solid #000", true},
		{"#fff #fff", "#fff", "#000", "#000 #000", true},
		{"url(#fff)", "#fff", "#000", "url(#000)", true},
		{"x#fff", "#fff", "#000", "x#fff", false},
		{"16px", "16px", "24px", "24px", true},
		{"116px", "16px", "24px", "116px", false},
		{"", "#fff", "#000", "", false},
		{"#fff", "", "#000", "#fff", false},
	}
	for _, tc := range cases {
		got, rewrote := replaceTokenValue(tc.s, tc.old, tc.new)
		assert.Equal(t, tc.want, got, "replace(%q, %q, %q)", tc.s, tc.old, tc.new)
		assert.Equal(t, tc.rewrote, rewrote, "rewrote(%q, %q, %q)", tc.s, tc.old, tc.new)
	}
}
