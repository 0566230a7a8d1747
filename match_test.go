package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umdb-app/umdb/services/matching"
	"github.com/umdb-app/umdb/services/source"
)

func TestRenderMatches(t *testing.T) {
	year := 1995
	out := renderMatches([]matching.ScoredCandidate{
		{Candidate: source.Candidate{Source: source.SourceTMDB, ExternalID: "949", Title: "Heat", Year: &year}, Confidence: 100},
		{Candidate: source.Candidate{Source: source.SourceOMDB, ExternalID: "tt0113277", Title: "Heat"}, Confidence: 70},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, out, "CONFIDENCE")
	assert.Contains(t, lines[3], "949")
	assert.Contains(t, lines[3], "1995")
	assert.Contains(t, lines[4], "tt0113277")
	assert.Contains(t, lines[4], "OMDB")
}
