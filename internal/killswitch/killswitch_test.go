package killswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKillAndRevive(t *testing.T) {
	s := New()
	assert.False(t, s.IsKilled("weather"))

	s.Kill("weather", "manual")
	assert.True(t, s.IsKilled("weather"))
	assert.Equal(t, "manual", s.Reason("weather"))

	s.Revive("weather")
	assert.False(t, s.IsKilled("weather"))
	assert.Equal(t, "", s.Reason("weather"))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Kill("weather", "manual")

	snap := s.Snapshot()
	snap["weather"] = "tampered"

	assert.Equal(t, "manual", s.Reason("weather"))
}
