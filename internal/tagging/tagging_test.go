package tagging

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAutoTagsAppendsKeywordSuffix(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "get_forecast", Description: "Retrieve the daily weather forecast for a location"},
	}
	out := ApplyAutoTags(tools)
	assert.Contains(t, out[0].Description, "[keywords:")
	assert.Contains(t, out[0].Description, "forecast")
	assert.Contains(t, out[0].Description, "weather")
}

func TestApplyAutoTagsIsIdempotent(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "get_forecast", Description: "Already tagged [keywords: forecast, weather]"},
	}
	out := ApplyAutoTags(tools)
	assert.Equal(t, tools[0].Description, out[0].Description)
}

func TestApplyAutoTagsSkipsWhenNoKeywordsFound(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "go", Description: "to a or is"},
	}
	out := ApplyAutoTags(tools)
	assert.Equal(t, "to a or is", out[0].Description)
}

func TestApplyAutoTagsCapsAtSevenKeywordsOrderedByDescendingLength(t *testing.T) {
	tools := []Tool{
		{
			Server:      "github",
			Name:        "create_issue",
			Description: "alpha bravo charlie delta echo foxtrot golf hotel india juliet",
		},
	}
	out := ApplyAutoTags(tools)
	require.Contains(t, out[0].Description, "[keywords:")

	suffix := strings.TrimSuffix(strings.SplitN(out[0].Description, "[keywords: ", 2)[1], "]")
	keywords := strings.Split(suffix, ", ")

	assert.Len(t, keywords, 7)
	assert.True(t, sort.SliceIsSorted(keywords, func(i, j int) bool { return len(keywords[i]) > len(keywords[j]) }))
	// longest words (by construction, stable on first appearance) win the cap.
	assert.Contains(t, keywords, "charlie")
	assert.Contains(t, keywords, "foxtrot")
	assert.NotContains(t, keywords, "golf")
}

func TestFamilyPrefixSplitsOnFirstUnderscore(t *testing.T) {
	assert.Equal(t, "github", familyPrefix("github_create_issue"))
	assert.Equal(t, "ping", familyPrefix("ping"))
}

func TestApplyDifferentialDescriptionsLeavesSingleMemberFamilyUnchanged(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "get_forecast", Description: "Get the weather forecast for a city"},
	}
	out := ApplyDifferentialDescriptions(tools)
	assert.Equal(t, tools[0].Description, out[0].Description)
}

func TestApplyDifferentialDescriptionsStripsWordsSharedWithinFamily(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "weather_get_forecast", Description: "Get the weather forecast for a city"},
		{Server: "weather", Name: "weather_get_alerts", Description: "Get active weather alerts for a city"},
	}
	out := ApplyDifferentialDescriptions(tools)

	assert.Equal(t, "the forecast for", out[0].Description)
	assert.Equal(t, "active alerts for", out[1].Description)
}

func TestApplyDifferentialDescriptionsDoesNotMixFamiliesOrServers(t *testing.T) {
	tools := []Tool{
		{Server: "weather", Name: "weather_get_forecast", Description: "Get the weather forecast"},
		{Server: "github", Name: "github_get_issue", Description: "Get the github issue"},
	}
	out := ApplyDifferentialDescriptions(tools)

	assert.Equal(t, tools[0].Description, out[0].Description)
	assert.Equal(t, tools[1].Description, out[1].Description)
}
