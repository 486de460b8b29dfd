package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/twinlabs/twin-controller/internal/command"
	"github.com/twinlabs/twin-controller/internal/cue"
	"github.com/twinlabs/twin-controller/internal/engine"
	"github.com/twinlabs/twin-controller/internal/inference"
	"github.com/twinlabs/twin-controller/internal/llm"
	"github.com/twinlabs/twin-controller/internal/report"
	"github.com/twinlabs/twin-controller/internal/rooms"
	"github.com/twinlabs/twin-controller/internal/search"
	"github.com/twinlabs/twin-controller/internal/session"
	"github.com/twinlabs/twin-controller/internal/transcribe"
	"github.com/twinlabs/twin-controller/internal/wake"
)

// loopTick paces timeout checks between utterances.
const loopTick = 250 * time.Millisecond

// #region main

func main() {
	_ = godotenv.Load()

	execute := pflag.BoolP("execute", "e", false, "execute the commands returned by the inference model")
	silent := pflag.BoolP("silent", "s", false, "disable audio cues and TTS playback")
	storeURL := pflag.String("store-url", envOr("TWIN_STORE_URL", "http://localhost:8900"), "vector store server URL")
	inferenceURL := pflag.String("inference-url", envOr("TWIN_INFERENCE_URL", "http://localhost:11434"), "Ollama inference server URL")
	inferenceModel := pflag.String("inference-model", envOr("TWIN_INFERENCE_MODEL", ""), "Ollama model name")
	transcribeURL := pflag.String("transcribe-url", envOr("TWIN_TRANSCRIBE_URL", ""), "transcription websocket URL (stdin when empty)")
	sourceName := pflag.String("source", envOr("TWIN_SOURCE", ""), "audio source name, used for room resolution")
	dbPath := pflag.String("db", envOr("TWIN_DB", "twin.db"), "session database path")
	roomConfig := pflag.String("rooms", envOr("TWIN_ROOMS", "config/source_locations.json"), "room configuration file")
	storesDir := pflag.String("stores", envOr("TWIN_STORES", "stores"), "persona store directory")
	reportDir := pflag.String("reports", envOr("TWIN_REPORTS", "reports"), "quality control report directory")
	listenAddr := pflag.String("listen", envOr("TWIN_LISTEN", ":8123"), "HTTP listen address for command injection")
	wakeSound := pflag.String("wake-sound", envOr("TWIN_WAKE_SOUND", ""), "wake earcon file")
	sleepSound := pflag.String("sleep-sound", envOr("TWIN_SLEEP_SOUND", ""), "sleep earcon file")
	ttsCommand := pflag.String("tts", envOr("TWIN_TTS", ""), "TTS command invoked with the response text")
	pflag.Parse()

	store, err := session.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}
	defer store.Close()

	searcher := search.NewClient(*storeURL)
	model := buildModel(*inferenceURL, *inferenceModel)

	executor := command.ShellExecutor{}
	persona := inference.NewPersonaLoader(*storesDir)
	pipeline := inference.NewPipeline(searcher, model, executor, persona)

	roomManager, err := rooms.NewManager(*roomConfig)
	if err != nil {
		log.Fatalf("load room config: %v", err)
	}

	cmdConfig := command.DefaultConfig()
	cmdConfig.Execute = *execute
	runner := command.NewRunner(cmdConfig, executor, roomManager)

	var player cue.Player = cue.NopPlayer{}
	if !*silent {
		player = cue.NewExecPlayer(cue.Config{
			WakeSoundPath:  *wakeSound,
			SleepSoundPath: *sleepSound,
			TTSCommand:     *ttsCommand,
		})
	}

	reporter := report.NewGenerator(model, *reportDir)

	eng := engine.New(engine.DefaultConfig(),
		wake.NewDetector(wake.DefaultPhrases(), searcher, wake.DefaultConfig()),
		pipeline, runner, store, player, reporter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := buildSource(*transcribeURL, *sourceName)
	if err != nil {
		log.Fatalf("transcription source: %v", err)
	}
	utterances, err := source.Start(ctx)
	if err != nil {
		log.Fatalf("start transcription: %v", err)
	}

	injected := make(chan string, 16)
	startInjectServer(*listenAddr, injected)

	log.Printf("[Twin] listening (execute=%t, store=%s, inference=%s)", *execute, *storeURL, *inferenceURL)
	runLoop(ctx, eng, utterances, injected)
	log.Printf("[Twin] shutting down")
}

// #endregion main

// #region loop

// runLoop is the single goroutine that owns the engine. Utterances,
// injected commands, and the timeout tick are serialized here.
func runLoop(ctx context.Context, eng *engine.Engine, utterances <-chan transcribe.Utterance, injected <-chan string) {
	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-utterances:
			if !ok {
				return
			}
			step(func() {
				log.Printf("[Source] %s", u.Text)
				if err := eng.HandleUtterance(ctx, u.Text, u.Source); err != nil {
					log.Printf("[Twin] utterance: %v", err)
				}
			})
		case text := <-injected:
			step(func() {
				log.Printf("[Command] injected: %s", text)
				if err := eng.Inject(ctx, text); err != nil {
					log.Printf("[Twin] inject: %v", err)
				}
			})
		case <-ticker.C:
			step(func() { eng.CheckTimeout(ctx) })
		}
	}
}

// step isolates one loop iteration; a panic in a collaborator must not
// take the daemon down.
func step(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Twin] recovered: %v", r)
		}
	}()
	fn()
}

// #endregion loop

// #region wiring

func buildModel(ollamaURL, ollamaModel string) llm.Inferencer {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		log.Printf("[Twin] using OpenAI inference")
		return llm.NewOpenAIClient(key, "", "")
	}
	log.Printf("[Twin] using Ollama inference at %s", ollamaURL)
	return llm.NewOllamaClient(ollamaURL, ollamaModel)
}

func buildSource(transcribeURL, sourceName string) (transcribe.Source, error) {
	if transcribeURL != "" {
		return transcribe.NewWSSource(transcribeURL, sourceName)
	}
	log.Printf("[Twin] no transcription server configured, reading stdin")
	return transcribe.NewReaderSource(os.Stdin, sourceName), nil
}

// startInjectServer exposes POST /command for external systems to
// push a command into the loop.
func startInjectServer(addr string, injected chan<- string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Command == "" {
			http.Error(w, "expected JSON body with a command field", http.StatusBadRequest)
			return
		}
		select {
		case injected <- body.Command:
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprintln(w, `{"status": "queued"}`)
		default:
			http.Error(w, "command queue full", http.StatusServiceUnavailable)
		}
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[Twin] inject server: %v", err)
		}
	}()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion wiring
