package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/drapaimern/stackbench/pkg/models"
)

func TestStatusCmd_UnknownRun(t *testing.T) {
	setupCLI(t)

	err := statusCmd.RunE(statusCmd, []string{"no-such-run"})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "loading run") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStatusCmd_ShowsRun(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 2)

	if err := statusCmd.RunE(statusCmd, []string{run.ID}); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestNextStepHint(t *testing.T) {
	run := &models.Run{ID: "r1", Config: models.RunConfig{AgentType: "cursor"}}

	tests := []struct {
		phase models.RunPhase
		want  string
	}{
		{models.PhaseCloned, "extract"},
		{models.PhaseExtracted, "prompt"},
		{models.PhaseExecution, "analyze"},
		{models.PhaseAnalysisIndividual, "report"},
		{models.PhaseCompleted, "complete"},
	}
	for _, tt := range tests {
		run.Phase = tt.phase
		if hint := nextStepHint(run); !strings.Contains(hint, tt.want) {
			t.Errorf("hint for %s = %q, want mention of %q", tt.phase, hint, tt.want)
		}
	}

	// Automated agents are pointed at execute instead of the manual flow.
	run.Phase = models.PhaseExtracted
	run.Config.AgentType = "claude"
	if hint := nextStepHint(run); !strings.Contains(hint, "execute") {
		t.Errorf("hint for automated agent = %q", hint)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate("a very long use case name that keeps going", 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q", got)
	}

	// Cutting inside a multi-byte rune must not produce invalid UTF-8.
	got = truncate("Überprüfung der Parallelität im Verbindungspool", 20)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 20 {
		t.Errorf("truncate kept %d runes, want 20: %q", n, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q", got)
	}
}

func TestListCmd_Empty(t *testing.T) {
	setupCLI(t)

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestListCmd_WithRuns(t *testing.T) {
	setupCLI(t)
	seedExtractedRun(t, 2)

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list: %v", err)
	}

	listJSON = true
	defer func() { listJSON = false }()
	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list --json: %v", err)
	}
}
