package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customRules = `
equipment:
  - name: base
    add: [Gloves, Trash bags]
  - name: sharps
    label_contains: [syringe, needle]
    add: [Sharps container, Gloves]
  - name: bulk
    count_above: 5
    add: [Pickup truck]
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(customRules))
	require.NoError(t, err)
	require.Len(t, rules.Equipment, 3)

	assert.Equal(t, []string{"Gloves", "Trash bags"}, rules.EquipmentFor([]string{"can"}, 1))
	assert.Equal(t, []string{"Gloves", "Trash bags", "Sharps container"}, rules.EquipmentFor([]string{"Used_Needle"}, 2))
	assert.Equal(t, []string{"Gloves", "Trash bags", "Pickup truck"}, rules.EquipmentFor([]string{"can"}, 6))
	assert.Empty(t, rules.EquipmentFor(nil, 0))
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]byte("equipment:\n  - name: empty\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("equipment:\n  - name: x\n    add: [a]\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customRules), 0o644))

	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "sharps", rules.Equipment[1].Name)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
