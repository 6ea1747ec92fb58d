package suites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityqa/verity/internal/suite"
)

func TestShippedSuitesAreRegistered(t *testing.T) {
	login, err := suite.Lookup("login")
	require.NoError(t, err)
	assert.Len(t, login, 3)

	api, err := suite.Lookup("api")
	require.NoError(t, err)
	assert.Len(t, api, 2)
}

func TestEveryScenarioIsTaggedAndStepped(t *testing.T) {
	all, err := suite.Lookup("")
	require.NoError(t, err)
	for _, sc := range all {
		assert.NotEmpty(t, sc.Name)
		assert.NotEmpty(t, sc.Tags, "scenario %q has no tags", sc.Name)
		assert.NotEmpty(t, sc.Steps, "scenario %q has no steps", sc.Name)
	}
}
