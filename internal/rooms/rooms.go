package rooms

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// #region config

// FallbackLocation is used when no mapping or transcript mention
// resolves a room.
const FallbackLocation = "office"

// Config is the on-disk room configuration: audio source to room
// mappings, spoken aliases, and the rooms known to carry devices.
type Config struct {
	SourceMappings  map[string]string   `json:"source_mappings"`
	RoomAliases     map[string][]string `json:"room_aliases"`
	DeviceRooms     map[string][]string `json:"device_rooms"`
	DefaultLocation string              `json:"default_location"`
}

// #endregion config

// #region manager

// Manager resolves room names from audio sources and transcripts.
type Manager struct {
	config Config
}

// NewManager loads the room configuration file. A missing or invalid
// file yields an empty config with the office fallback, matching the
// degraded behavior the rest of the pipeline expects.
func NewManager(configPath string) (*Manager, error) {
	m := &Manager{config: Config{DefaultLocation: FallbackLocation}}
	if configPath == "" {
		return m, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read room config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse room config: %w", err)
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = FallbackLocation
	}
	m.config = cfg
	return m, nil
}

// DefaultLocation returns the configured fallback room.
func (m *Manager) DefaultLocation() string {
	return m.config.DefaultLocation
}

// LocationForSource maps an audio source identifier to a room, first
// by exact match, then by substring pattern. Returns "" for unmapped
// sources so later resolution steps still apply.
func (m *Manager) LocationForSource(source string) string {
	if loc, ok := m.config.SourceMappings[source]; ok {
		return loc
	}
	for pattern, loc := range m.config.SourceMappings {
		if source != "" && strings.Contains(source, pattern) {
			return loc
		}
	}
	return ""
}

// ResolveFromTranscript finds a room mentioned in the transcript, by
// canonical name or alias. Returns "" when nothing matches.
func (m *Manager) ResolveFromTranscript(transcript string) string {
	lower := strings.ToLower(transcript)

	for _, room := range m.AllRooms() {
		if strings.Contains(lower, strings.ToLower(room)) {
			return room
		}
	}
	for room, aliases := range m.config.RoomAliases {
		for _, alias := range aliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				return room
			}
		}
	}
	return ""
}

// AllRooms returns the sorted set of rooms known from device
// configuration and source mappings.
func (m *Manager) AllRooms() []string {
	set := make(map[string]struct{})
	for room := range m.config.DeviceRooms {
		set[room] = struct{}{}
	}
	for _, room := range m.config.SourceMappings {
		set[room] = struct{}{}
	}
	rooms := make([]string, 0, len(set))
	for room := range set {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// #endregion manager
