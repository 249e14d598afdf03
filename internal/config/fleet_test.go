package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pick-allocation-service/internal/domain"
)

func TestDefaultFleet(t *testing.T) {
	f, err := LoadFleet("")
	require.NoError(t, err)
	require.Len(t, f.Profiles, 3)

	caps, err := f.Capabilities()
	require.NoError(t, err)

	robot := caps[domain.AgentRobot]
	require.InDelta(t, 2.0, robot.Speed(), 1e-12)
	require.True(t, robot.CanHandle(domain.ClassStandard))
	require.False(t, robot.CanHandle(domain.ClassFragile))

	cart := caps[domain.AgentCart]
	require.True(t, cart.CanHandle(domain.ClassOversized))
}

func TestFleetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yml")
	doc := `profiles:
  robot:
    speed: 3
    cost_per_distance: 0.02
    classes: [standard]
    denied_zones: [cold-store]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f, err := LoadFleet(path)
	require.NoError(t, err)

	a, err := f.NewAgent("r1", domain.AgentRobot, domain.Capacity{Items: 4, Volume: 80}, domain.Position{})
	require.NoError(t, err)
	require.InDelta(t, 80.0, a.Capacity.Volume, 1e-12)
	require.False(t, a.Capabilities().MayEnter("cold-store"))
	require.True(t, a.Capabilities().MayEnter("A"))

	_, err = f.NewAgent("h1", domain.AgentHuman, domain.Capacity{Items: 4}, domain.Position{})
	require.Error(t, err)
}

func TestLoadFleetMissingFile(t *testing.T) {
	_, err := LoadFleet(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestFleetValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `profiles: {}`},
		{"unknown type", "profiles:\n  drone:\n    speed: 1\n    classes: [standard]\n"},
		{"zero speed", "profiles:\n  robot:\n    speed: 0\n    classes: [standard]\n"},
		{"negative rate", "profiles:\n  robot:\n    speed: 1\n    cost_per_minute: -1\n    classes: [standard]\n"},
		{"no classes", "profiles:\n  robot:\n    speed: 1\n"},
		{"bad class", "profiles:\n  robot:\n    speed: 1\n    classes: [liquid]\n"},
		{"unknown field", "profiles:\n  robot:\n    speed: 1\n    wheels: 4\n    classes: [standard]\n"},
		{"not yaml", "profiles: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}
