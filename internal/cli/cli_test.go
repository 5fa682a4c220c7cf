package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescore/internal/assistant"
	"resumescore/internal/common"
	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/extract"
	"resumescore/internal/history"
	"resumescore/internal/scoring"
	"resumescore/internal/types"
	"resumescore/internal/utils"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestScoreBatchRanksAndKeepsFailures(t *testing.T) {
	dir := t.TempDir()
	strong := writeTemp(t, dir, "strong.txt", "Experience\nEducation\nSkills\nProjects\nPython SQL Java Git developer, improved throughput by 30%.")
	weak := writeTemp(t, dir, "weak.txt", "hello")
	broken := writeTemp(t, dir, "broken.exe", "x")

	engine := scoring.NewEngine(scoring.SimilarityFunc(func(a, b string) (float64, error) { return 0.4, nil }))
	fp := common.NewFileProcessor(errors.Discard(), 0)

	items, err := scoreBatch(context.Background(), engine, fp, []string{weak, broken, strong}, "", 2)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, strong, items[0].File)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, weak, items[1].File)
	assert.Equal(t, 2, items[1].Rank)
	assert.GreaterOrEqual(t, items[0].Result.Base().Score, items[1].Result.Base().Score)

	assert.Equal(t, broken, items[2].File)
	assert.Zero(t, items[2].Rank)
	assert.Nil(t, items[2].Result)
	assert.Contains(t, items[2].Error, "Unsupported file type")
}

func TestScoreBatchKeepsDirectoryInName(t *testing.T) {
	root := t.TempDir()
	var dirs []string
	for _, dir := range []string{"alice", "bob"} {
		dir = filepath.Join(root, dir)
		require.NoError(t, os.Mkdir(dir, 0755))
		writeTemp(t, dir, "cv.txt", "Skills\npython")
		dirs = append(dirs, dir)
	}
	files, err := utils.ExpandInputs(dirs, extract.IsSupported)
	require.NoError(t, err)
	require.Len(t, files, 2)

	engine := scoring.NewEngine(scoring.SimilarityFunc(func(a, b string) (float64, error) { return 0, nil }))
	items, err := scoreBatch(context.Background(), engine, common.NewFileProcessor(errors.Discard(), 0), files, "", 1)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{filepath.Join(root, "alice", "cv.txt"), filepath.Join(root, "bob", "cv.txt")},
		[]string{items[0].File, items[1].File})
}

func TestRankBatchStableTies(t *testing.T) {
	audit := func(score float64) scoring.Result {
		return &scoring.AuditResult{Summary: scoring.Summary{Score: score}}
	}
	items := []types.BatchItem{
		{File: "a", Result: audit(50)},
		{File: "err", Error: "boom"},
		{File: "b", Result: audit(70)},
		{File: "c", Result: audit(50)},
	}
	rankBatch(items)

	var order []string
	for _, it := range items {
		order = append(order, it.File)
	}
	assert.Equal(t, []string{"b", "a", "c", "err"}, order)
	assert.Equal(t, []int{1, 2, 3, 0}, []int{items[0].Rank, items[1].Rank, items[2].Rank, items[3].Rank})
}

func TestJobDescriptionFlags(t *testing.T) {
	fp := common.NewFileProcessor(errors.Discard(), 0)

	jd, err := (&jobDescriptionFlags{text: "  Go developer  "}).read(fp)
	require.NoError(t, err)
	assert.Equal(t, "Go developer", jd)

	jd, err = (&jobDescriptionFlags{}).read(fp)
	require.NoError(t, err)
	assert.Empty(t, jd)
	assert.Equal(t, scoring.ModeAudit, modeFor(jd))

	path := writeTemp(t, t.TempDir(), "jd.md", "# Backend\nPython and SQL")
	jd, err = (&jobDescriptionFlags{file: path}).read(fp)
	require.NoError(t, err)
	assert.Contains(t, jd, "Python and SQL")
	assert.Equal(t, scoring.ModeMatch, modeFor(jd))
}

func TestApplyServeOverrides(t *testing.T) {
	saved := serveFlags
	t.Cleanup(func() { serveFlags = saved })

	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: "8080"}}
	serveFlags.port = "9090"
	serveFlags.tlsMode = "server"
	applyServeOverrides(cfg)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "server", cfg.Server.TLS.Mode)
}

func TestWriteReply(t *testing.T) {
	reply := assistant.Reply{Text: assistant.ReplyLayout, Source: assistant.SourceRules}

	var text bytes.Buffer
	require.NoError(t, writeReply(&text, reply, false))
	assert.Equal(t, assistant.ReplyLayout+"\n", text.String())

	var js bytes.Buffer
	require.NoError(t, writeReply(&js, reply, true))
	assert.Contains(t, js.String(), `"response": "`+assistant.ReplyLayout+`"`)
	assert.Contains(t, js.String(), `"source": "rules"`)
}

func TestNewAccountsGeneratesSecret(t *testing.T) {
	store, err := history.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cli.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{Auth: config.AuthConfig{BcryptCost: config.MinBcryptCost, TokenTTL: time.Hour}}
	accounts, err := newAccounts(cfg, store, errors.Discard())
	require.NoError(t, err)

	token, _, err := accounts.Tokens().Issue(uuid.New(), "alice")
	require.NoError(t, err)
	claims, err := accounts.Tokens().Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	cfg.Auth.BcryptCost = 1
	_, err = newAccounts(cfg, store, errors.Discard())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestExecuteVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute(context.Background(), &config.Config{}, errors.Discard()))
	assert.True(t, strings.HasPrefix(out.String(), "resumescore version "+Version))
}
