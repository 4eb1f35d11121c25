package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/faultd/internal/cache"
)

func TestCacheStatsOutputCarriesScope(t *testing.T) {
	out := cacheStatsOutput{
		Stats: cache.Stats{Hits: 3, Misses: 1, Entries: 2},
		Scope: "current process",
	}

	blob, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(blob, &decoded))
	assert.Equal(t, "current process", decoded["scope"])
	assert.Equal(t, float64(3), decoded["hits"])
}

func TestCacheStatsHelpExplainsScope(t *testing.T) {
	// The counters reset every invocation; the help text must say so.
	assert.Contains(t, cacheStatsCmd.Long, "current process")
}
