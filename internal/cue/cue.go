package cue

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"time"
)

// #region player

// Player produces the audible side of the assistant: earcons for wake
// and sleep transitions, spoken responses, and media ducking while a
// session is open. Implementations must return without waiting for
// playback; the caller is the engine's single processing loop.
type Player interface {
	PlayWake(ctx context.Context)
	PlaySleep(ctx context.Context)
	Speak(ctx context.Context, text string)
	Duck(ctx context.Context)
	Unduck(ctx context.Context)
}

// #endregion player

// #region exec-player

// maxSpokenWords truncates long model responses before TTS.
const maxSpokenWords = 15

// Config locates the external audio tooling.
type Config struct {
	WakeSoundPath  string
	SleepSoundPath string
	TTSCommand     string // executable invoked with the text as its argument
}

// ExecPlayer shells out to the system audio tools. Every call returns
// immediately and the subprocess runs in a background goroutine.
// Playback failures are logged and swallowed; audio is never allowed
// to break the loop.
type ExecPlayer struct {
	config  Config
	timeout time.Duration
}

// NewExecPlayer creates a player for the configured sound files and
// TTS command.
func NewExecPlayer(config Config) *ExecPlayer {
	return &ExecPlayer{config: config, timeout: 30 * time.Second}
}

// PlayWake plays the wake earcon.
func (p *ExecPlayer) PlayWake(ctx context.Context) {
	p.playFile(ctx, p.config.WakeSoundPath)
}

// PlaySleep plays the sleep earcon.
func (p *ExecPlayer) PlaySleep(ctx context.Context) {
	p.playFile(ctx, p.config.SleepSoundPath)
}

// Speak runs the TTS command with a truncated response text.
func (p *ExecPlayer) Speak(ctx context.Context, text string) {
	if p.config.TTSCommand == "" || text == "" {
		return
	}
	go p.run(ctx, p.config.TTSCommand, truncateSpoken(text))
}

// Duck pauses any playing media so the microphone hears the room.
func (p *ExecPlayer) Duck(ctx context.Context) {
	go p.run(ctx, "playerctl", "pause")
}

// Unduck resumes media paused by Duck.
func (p *ExecPlayer) Unduck(ctx context.Context) {
	go p.run(ctx, "playerctl", "play")
}

func (p *ExecPlayer) playFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	go p.run(ctx, "paplay", path)
}

func (p *ExecPlayer) run(ctx context.Context, name string, args ...string) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := exec.CommandContext(runCtx, name, args...).Run(); err != nil {
		log.Printf("[Cue] %s failed: %v", name, err)
	}
}

func truncateSpoken(text string) string {
	words := strings.Fields(text)
	if len(words) <= maxSpokenWords {
		return text
	}
	return strings.Join(words[:maxSpokenWords], " ") + "..."
}

// #endregion exec-player

// #region nop-player

// NopPlayer discards all cues, for silent mode and tests.
type NopPlayer struct{}

func (NopPlayer) PlayWake(context.Context)      {}
func (NopPlayer) PlaySleep(context.Context)     {}
func (NopPlayer) Speak(context.Context, string) {}
func (NopPlayer) Duck(context.Context)          {}
func (NopPlayer) Unduck(context.Context)        {}

// #endregion nop-player
