package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/twinlabs/twin-controller/internal/llm"
	"github.com/twinlabs/twin-controller/internal/session"
)

// #region prompt

const reportPromptTemplate = `
You are an expert quality control agent for a voice-controlled home assistant application.

Given the following session data in JSON format:

{session_json}

Please analyze the session data and produce a detailed quality control report that includes:

1. **Session Overview**:
   - Session ID, start time, end time, and duration.
   - Wake phrase used and its detection context.

2. **Conversation Transcript**:
   - A chronological, step-by-step account of the interaction, including:
     - Voice source texts (user's spoken inputs).
     - System transcriptions.
     - System responses.

3. **Inference Analysis**:
   - For each inference made:
     - Source text provided to the LLM.
     - LLM's reasoning and response.
     - Commands generated.
     - Risk assessment and any confirmation steps.

4. **Command Execution Details**:
   - For each command executed:
     - Command text.
     - Execution timestamp.
     - Output or result of the command.
     - Success or failure status.
     - Any error messages encountered.

5. **Vectorstore Search Results**:
   - Summary of vectorstore queries and results during the session.
   - Explanation of how the results influenced the system's actions.

6. **Session Analysis**:
   - Overall assessment of the system's performance during the session.
   - Identification of any issues, errors, or anomalies.
   - Recommendations for improvements or adjustments.

Please present the report in clear, well-structured prose, using appropriate headings and bullet points where necessary.

Do not include the raw session data in the report. Summarize and interpret the data to provide meaningful insights.

The final report should be in plain text, without any JSON or code blocks.
`

// #endregion prompt

// #region generator

// Generator produces post-session quality control reports via the
// inference model and writes them to the report directory.
type Generator struct {
	model llm.Inferencer
	dir   string
	now   func() time.Time
}

// NewGenerator creates a report generator writing into dir.
func NewGenerator(model llm.Inferencer, dir string) *Generator {
	return &Generator{model: model, dir: dir, now: time.Now}
}

// Generate builds the QC report for one finalized session and writes
// it to qc_report_<timestamp>.txt. Reporting is best effort; the
// caller logs the error and moves on.
func (g *Generator) Generate(ctx context.Context, sess *session.Session) (string, error) {
	sessionJSON, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	prompt := strings.Replace(reportPromptTemplate, "{session_json}", string(sessionJSON), 1)
	text, err := g.model.Infer(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("report inference: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("report inference returned empty text")
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(g.dir, fmt.Sprintf("qc_report_%s.txt", g.now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Printf("[Report] wrote %s", path)
	return path, nil
}

// #endregion generator
