// Package featureflags evaluates runtime toggles configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const (
	// SignedURLs gates rewriting of storage references into signed URLs in responses.
	SignedURLs = "signed_urls"
	// RealtimeEvents gates websocket, Redis and broker fan-out of domain events.
	RealtimeEvents = "realtime_events"
)

// Defaults apply unless FEATURE_FLAGS overrides them.
var Defaults = map[string]string{
	SignedURLs:     "on",
	RealtimeEvents: "on",
}

// rollout is a parsed flag value: a percentage of users in [0,100].
// "on" is 100 and "off" is 0.
type rollout struct {
	raw     string
	percent int
}

func parseRollout(value string) (rollout, bool) {
	switch value {
	case "on", "true", "1":
		return rollout{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rollout{raw: value, percent: 0}, true
	}
	pct, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rollout{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rollout{}, false
	}
	return rollout{raw: value, percent: min(max(n, 0), 100)}, true
}

// Manager evaluates feature flags defined as "name=value" pairs, e.g.
// "signed_urls=off,realtime_events=25%". Values are on/true/1, off/false/0 or
// a percentage rolled out deterministically by user ID.
type Manager struct {
	flags   map[string]rollout
	invalid []string
}

// NewManager parses a comma-separated flag list layered over Defaults.
// Malformed entries are skipped and reported by Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]rollout, len(Defaults))}
	for name, value := range Defaults {
		r, _ := parseRollout(value)
		m.flags[name] = r
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" {
			m.invalid = append(m.invalid, pair)
			continue
		}
		r, ok := parseRollout(value)
		if !ok {
			m.invalid = append(m.invalid, pair)
			continue
		}
		m.flags[name] = r
	}
	return m
}

// Enabled reports whether flag name is on for userID. Partial rollouts are
// off for anonymous callers (userID 0). Unknown flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch r.percent {
	case 0:
		return false
	case 100:
		return true
	}
	if userID == 0 {
		return false
	}
	return bucket(name, userID) < r.percent
}

// Invalid lists the entries NewManager could not parse.
func (m *Manager) Invalid() []string {
	return append([]string(nil), m.invalid...)
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for name, r := range m.flags {
		out[name] = r.raw
	}
	return out
}

// Names returns the flag names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for name := range m.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name)))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
