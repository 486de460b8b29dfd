package inference

import (
	"encoding/json"
	"strings"
)

// #region fences

// StripFences removes a ```json ... ``` wrapper if the model added one.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

// #endregion fences

// #region normalize

// looseResponse accepts both reply shapes the models produce: the
// documented one with a "commands" array, and the drifted one with a
// "command" key holding a string, a list of strings, or a list of
// objects that each carry a "command" field.
type looseResponse struct {
	Commands              []string        `json:"commands"`
	Command               json.RawMessage `json:"command"`
	Response              string          `json:"response"`
	Risk                  *float64        `json:"risk"`
	Confirmed             bool            `json:"confirmed"`
	Confidence            *float64        `json:"confidence"`
	IntentReasoning       string          `json:"intent_reasoning"`
	RequiresAudioFeedback bool            `json:"requires_audio_feedback"`
}

// Normalize parses a raw model reply into the canonical Response.
// Replies that are not JSON at all become an echo fallback at risk 0.5,
// which sits exactly at the default threshold and so still executes.
// A JSON string containing JSON is decoded twice.
func Normalize(raw string) *Response {
	text := StripFences(raw)

	var loose looseResponse
	if err := json.Unmarshal([]byte(text), &loose); err != nil {
		// The whole reply might be a JSON-encoded string wrapping the
		// real object.
		var inner string
		if err2 := json.Unmarshal([]byte(text), &inner); err2 == nil {
			if err3 := json.Unmarshal([]byte(inner), &loose); err3 != nil {
				return echoFallback(inner)
			}
		} else {
			return echoFallback(text)
		}
	}

	resp := &Response{
		Commands:              loose.Commands,
		Response:              loose.Response,
		Risk:                  0.5,
		Confirmed:             loose.Confirmed,
		Confidence:            0.5,
		IntentReasoning:       loose.IntentReasoning,
		RequiresAudioFeedback: loose.RequiresAudioFeedback,
	}
	if loose.Risk != nil {
		resp.Risk = *loose.Risk
	}
	if loose.Confidence != nil {
		resp.Confidence = *loose.Confidence
	}

	if resp.Commands == nil && len(loose.Command) > 0 {
		resp.Commands = extractCommandVariant(loose.Command)
	}
	if resp.Commands == nil {
		resp.Commands = []string{}
	}
	return resp
}

// extractCommandVariant handles the "command" key drift: a bare
// string, a list of strings, or a list of {"command": ...} objects.
func extractCommandVariant(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var commands []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			commands = append(commands, s)
			continue
		}
		var obj struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Command != "" {
			commands = append(commands, obj.Command)
		}
	}
	return commands
}

func echoFallback(text string) *Response {
	return &Response{
		Commands:   []string{"echo " + text},
		Response:   text,
		Risk:       0.5,
		Confidence: 0.5,
	}
}

// #endregion normalize
