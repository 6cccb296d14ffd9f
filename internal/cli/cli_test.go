package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/scholarfetch/internal/app"
	"github.com/law-makers/scholarfetch/internal/config"
	"github.com/law-makers/scholarfetch/pkg/models"
)

func TestReadURLs(t *testing.T) {
	in := `
# awards
https://a.edu/award

  https://b.org/grant  
#https://skipped.example
`
	urls, err := readURLs(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.edu/award", "https://b.org/grant"}, urls)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ééé...", preview("éééééé", 3))
}

func TestSetAndGetApp(t *testing.T) {
	parent := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child"}
	parent.AddCommand(child)

	assert.Nil(t, GetAppFromCmd(child))

	a, err := app.New(context.Background(), config.Default())
	require.NoError(t, err)

	SetApp(parent, a)
	assert.Same(t, a, GetAppFromCmd(child), "parent context is inherited")

	SetApp(parent, nil)
	assert.Nil(t, GetAppFromCmd(child))
}

func TestPrintTrace(t *testing.T) {
	var buf bytes.Buffer
	printTrace(&buf, &models.FetchOutcome{Attempts: []models.FetchAttempt{
		{Strategy: models.StrategyTLSImpersonation, Outcome: models.OutcomeBlocked, StatusCode: 403, Detail: "status 403"},
		{Strategy: models.StrategyBrowserHeaders, Outcome: models.OutcomeSuccess},
	}})
	out := buf.String()
	assert.Contains(t, out, "1. tls-impersonation")
	assert.Contains(t, out, "status 403")
	assert.Contains(t, out, "2. browser-headers")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &models.BatchSummary{
		Total: 2, Successful: 1, Failed: 1, TotalTime: time.Second,
		Results: []models.BatchItemResult{
			{URL: "https://a.edu", Success: true, Content: "hello", Strategy: models.StrategyChallengeSolver},
			{URL: "https://b.edu", Error: "failed to fetch content from https://b.edu: all 6 strategies exhausted"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "challenge-solver, 5 chars")
	assert.Contains(t, out, "exhausted")
	assert.Contains(t, out, "1 succeeded")
	assert.Contains(t, out, "1 failed")
}

func TestDiagnose_NoBrowserNeeded(t *testing.T) {
	cfg := config.Default()
	ids, err := config.ParseStrategies([]string{"1,2,3"})
	require.NoError(t, err)
	cfg.StrategyIDs = ids

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())

	require.NoError(t, diagnose(cmd, a))
	out := buf.String()
	assert.Contains(t, out, "3. challenge-solver")
	assert.NotContains(t, out, "browser-basic")
	assert.Contains(t, out, "ready")
}

func TestRenderHelp_GroupsGlobalFlags(t *testing.T) {
	var buf bytes.Buffer
	renderHelp(&buf, fetchCmd, true)
	out := buf.String()

	assert.Contains(t, out, "Examples")
	assert.Contains(t, out, "Ladder Flags")
	assert.Contains(t, out, "Browser Flags")
	assert.Contains(t, out, "Output Flags")
	assert.NotContains(t, out, "Global Flags")
	assert.Equal(t, 1, strings.Count(out, "--strategies strings"))
	assert.Equal(t, 1, strings.Count(out, "--chrome-path string"))

	// local flags come before the grouped globals
	format := strings.Index(out, "--format")
	require.NotEqual(t, -1, format)
	assert.Less(t, format, strings.Index(out, "Ladder Flags"))
	assert.Less(t, strings.Index(out, "--seed"), strings.Index(out, "Browser Flags"))
	assert.Greater(t, strings.Index(out, "--headful"), strings.Index(out, "Browser Flags"))
}

func TestRenderHelp_UsageIsShort(t *testing.T) {
	var buf bytes.Buffer
	renderHelp(&buf, fetchCmd, false)
	out := buf.String()

	assert.Contains(t, out, "Usage")
	assert.Contains(t, out, "--format")
	assert.NotContains(t, out, "Examples")
	assert.NotContains(t, out, "Ladder Flags")
	assert.Contains(t, out, "--help\" for more information")
}

func TestParseFlagUsages(t *testing.T) {
	usages := "  -f, --format string   Stdout format\n" +
		"      --strategies strings   Enabled strategies\n" +
		"                             in ladder order\n"

	entries := parseFlagUsages(usages)
	require.Len(t, entries, 2)
	assert.Equal(t, "format", entries[0].name)
	assert.Equal(t, "-f, --format string", entries[0].syntax)
	assert.Equal(t, "strategies", entries[1].name)
	assert.Equal(t, "Enabled strategies in ladder order", entries[1].desc)
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n- item stays\n\nnext", 9)
	assert.Equal(t, "one two\nthree\nfour\n- item stays\n\nnext", got)
}
