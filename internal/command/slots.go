package command

import (
	"regexp"
	"strings"
)

// #region resolver

// RoomResolver maps free text and audio source names to a configured
// room name. *rooms.Manager satisfies it.
type RoomResolver interface {
	ResolveFromTranscript(transcript string) string
	LocationForSource(source string) string
	DefaultLocation() string
}

// #endregion resolver

// #region slots

var placeholderPattern = regexp.MustCompile(`<[^>]*>`)

// ResolveSlots fills <room_name> placeholders and sanitizes any other
// angle-bracket slot left in a command so it cannot reach the shell as
// a redirect. Room resolution priority: a room named in the transcript,
// then the room the audio source sits in, then one named in the
// persona text, then the configured default.
func ResolveSlots(cmd, transcript, source, persona string, resolver RoomResolver) string {
	if !strings.ContainsAny(cmd, "<>") {
		return cmd
	}

	room := ""
	if resolver != nil {
		room = resolver.ResolveFromTranscript(transcript)
		if room == "" && source != "" {
			room = resolver.LocationForSource(source)
		}
		if room == "" {
			room = resolver.ResolveFromTranscript(persona)
		}
		if room == "" {
			room = resolver.DefaultLocation()
		}
	}
	if room == "" {
		room = "office"
	}

	cmd = strings.ReplaceAll(cmd, "<room_name>", room)

	// Any remaining placeholder the model invented gets the same room.
	return placeholderPattern.ReplaceAllString(cmd, room)
}

// #endregion slots
