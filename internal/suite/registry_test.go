package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	Register("registry_test_a", Scenario{Name: "one"}, Scenario{Name: "two"})
	Register("registry_test_a", Scenario{Name: "three"})
	Register("registry_test_b", Scenario{Name: "four"})

	scenarios, err := Lookup("registry_test_a")
	require.NoError(t, err)
	assert.Len(t, scenarios, 3)

	all, err := Lookup("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 4)

	_, err = Lookup("registry_test_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry_test_missing")

	assert.Contains(t, Names(), "registry_test_b")
}
