package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(SignedURLs, 0))
	assert.True(t, m.Enabled(RealtimeEvents, 0))

	m = NewManager("signed_urls=off")
	assert.False(t, m.Enabled(SignedURLs, 0), "explicit config overrides defaults")
	assert.True(t, m.Enabled(RealtimeEvents, 0), "unrelated defaults survive an override")
}

func TestEnabled(t *testing.T) {
	m := NewManager("a=on,b=off,c=TRUE,d=false,e=1,f=0,always=100%,never=0%,over=150%")

	tests := []struct {
		flag string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", false},
		{"e", true},
		{"f", false},
		{"always", true},
		{"never", false},
		{"over", true},
		{"missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Enabled(tt.flag, 1))
		})
	}
}

func TestEnabled_PartialRollout(t *testing.T) {
	m := NewManager("canary=25%")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout is deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0), "anonymous callers are outside partial rollouts")

	on := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if m.Enabled("canary", uid) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestParse_SkipsMalformedEntries(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,w=maybe,=on ")

	raw := m.Raw()
	assert.Len(t, raw, 3+len(Defaults))
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])
	assert.ElementsMatch(t, []string{"bad", "w=maybe", "=on"}, m.Invalid())

	assert.Equal(t, []string{RealtimeEvents, SignedURLs, "x", "y", "z"}, m.Names())

	snap := m.Snapshot(123)
	assert.Len(t, snap, len(raw))
	assert.True(t, snap[SignedURLs])
	assert.False(t, snap["z"])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(SignedURLs, 1), "nil manager reports every flag disabled")
}
