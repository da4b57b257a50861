package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/cache"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/language"
)

var glossary = strings.NewReplacer(
	"Hello", "こんにちは",
	"World", "世界",
	"Universe", "宇宙",
)

type fakeTranslator struct {
	mu    sync.Mutex
	reqs  []invoker.Request
	reply func(req invoker.Request) (string, error)
}

func (f *fakeTranslator) Translate(_ context.Context, req invoker.Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	return glossary.Replace(req.Text), nil
}

func (f *fakeTranslator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type project struct {
	t   *testing.T
	cfg Config
}

func newProject(t *testing.T, manifest string) *project {
	t.Helper()
	dir := t.TempDir()
	p := &project{t: t, cfg: Config{
		Root:             dir,
		ManifestPath:     filepath.Join(dir, "translations", "targets.csv"),
		CachePath:        filepath.Join(dir, ".translations.json"),
		AllowedLanguages: language.NewSet("en", "ja"),
		Now:              func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}}
	if manifest != "" {
		p.write("translations/targets.csv", "relative_path,src_lang,target_langs\n"+manifest)
	}
	return p
}

func (p *project) write(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.cfg.Root, filepath.FromSlash(rel))
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) read(rel string) string {
	p.t.Helper()
	data, err := os.ReadFile(filepath.Join(p.cfg.Root, filepath.FromSlash(rel)))
	require.NoError(p.t, err)
	return string(data)
}

func (p *project) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.cfg.Root, filepath.FromSlash(rel)))
	return err == nil
}

func (p *project) run(tr invoker.Translator) (Result, error) {
	return Run(context.Background(), p.cfg, tr)
}

func TestRun_FreshTranslation(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	tr := &fakeTranslator{}

	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls())
	assert.Equal(t, "Hello\n\nWorld", tr.reqs[0].Text)
	assert.Equal(t, "docs/a_ja.md", tr.reqs[0].TargetPath)
	assert.Equal(t, "こんにちは\n\n世界\n", p.read("docs/a_ja.md"))
	assert.Equal(t, 1, res.Translated)
	assert.Equal(t, 1, res.Count(StateFresh))
	assert.True(t, res.CacheWritten)

	store, err := cache.Load(p.cfg.CachePath)
	require.NoError(t, err)
	entry, ok := store.Get("docs/a_original.md::en->ja")
	require.True(t, ok)
	assert.Equal(t, "docs/a_ja.md", entry.Target)
	require.Len(t, entry.Segments, 2)
	assert.Equal(t, "こんにちは", entry.Segments[0].Translation)
	assert.Equal(t, "世界", entry.Segments[1].Translation)
	assert.True(t, entry.TranslatedAt.Equal(p.cfg.Now()))
}

func TestRun_FreshTranslationWithLeadingBlankLines(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "\n\nHello\n\nWorld\n")
	tr := &fakeTranslator{}

	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls())
	assert.Equal(t, 1, res.Count(StateFresh))
	assert.Equal(t, "\n\nこんにちは\n\n世界\n", p.read("docs/a_ja.md"))

	store, err := cache.Load(p.cfg.CachePath)
	require.NoError(t, err)
	entry, ok := store.Get("docs/a_original.md::en->ja")
	require.True(t, ok)
	require.Len(t, entry.Segments, 3)
	assert.Empty(t, entry.Segments[0].Translation)
	assert.Equal(t, "こんにちは", entry.Segments[1].Translation)
	assert.Equal(t, "世界", entry.Segments[2].Translation)
}

func TestRun_IncrementalTranslatesOnlyChangedSegments(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	p.write("docs/a_original.md", "Hello\n\nUniverse")
	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)

	require.Equal(t, 1, tr.calls())
	assert.Equal(t, "Universe", tr.reqs[0].Text)
	assert.Equal(t, "docs/a_original.md (segment 2/2)", tr.reqs[0].SourcePath)
	assert.Equal(t, "こんにちは\n\n宇宙\n", p.read("docs/a_ja.md"))
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, StateIncremental, res.Pairs[0].State)
	assert.Equal(t, 1, res.Pairs[0].Reused)
	assert.Equal(t, 1, res.Pairs[0].Translated)
}

func TestRun_UpToDateIsIdempotent(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld\n")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)
	target := p.read("docs/a_ja.md")
	store := p.read(".translations.json")

	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Zero(t, tr.calls())
	assert.Equal(t, 1, res.Count(StateUpToDate))
	assert.False(t, res.CacheWritten)
	assert.Equal(t, target, p.read("docs/a_ja.md"))
	assert.Equal(t, store, p.read(".translations.json"))
}

func TestRun_ReorderedSegmentsAreReused(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	p.write("docs/a_original.md", "World\n\nHello")
	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Zero(t, tr.calls())
	assert.Equal(t, 1, res.Count(StateReused))
	assert.True(t, res.CacheWritten)
	assert.Equal(t, "世界\n\nこんにちは\n", p.read("docs/a_ja.md"))
}

func TestRun_DisallowedTargetIsSkipped(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja;fr\n")
	p.write("docs/a_original.md", "Hello")
	tr := &fakeTranslator{}

	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls())
	assert.Equal(t, 1, res.Count(StateSkipDisallowed))
	assert.Equal(t, 1, res.Count(StateFresh))
	assert.False(t, p.exists("docs/a_fr.md"))
}

func TestRun_RowProblemsDoNotStopTheRun(t *testing.T) {
	p := newProject(t, strings.Join([]string{
		"docs/missing.md,en,ja",
		"docs/b.md,de,ja",
		",en,ja",
		"docs/a_original.md,en,",
		"docs/a_original.md,en,en",
		"docs/a_original.md,en,ja",
	}, "\n")+"\n")
	p.write("docs/a_original.md", "Hello")

	res, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Count(StateSkipMissingSource))
	assert.Equal(t, 1, res.Count(StateSkipDisallowed))
	assert.Equal(t, 2, res.Count(StateSkipInvalidRow))
	assert.Equal(t, 1, res.Count(StateSkipSameLang))
	assert.Equal(t, 1, res.Count(StateFresh))
	assert.Equal(t, "こんにちは\n", p.read("docs/a_ja.md"))
}

func TestRun_SegmentCountMismatchFallsBack(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	tr := &fakeTranslator{reply: func(req invoker.Request) (string, error) {
		if !strings.Contains(req.SourcePath, "(segment") {
			return "こんにちは 世界", nil
		}
		return glossary.Replace(req.Text), nil
	}}

	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Equal(t, 3, tr.calls())
	assert.Equal(t, 1, res.Count(StateIncremental))
	assert.Equal(t, "こんにちは\n\n世界\n", p.read("docs/a_ja.md"))
}

func TestRun_UnusableTranslationAborts(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	tr := &fakeTranslator{reply: func(invoker.Request) (string, error) { return "ERROR", nil }}

	_, err := p.run(tr)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInvoker))
	assert.False(t, p.exists("docs/a_ja.md"))
	assert.False(t, p.exists(".translations.json"))
}

func TestRun_TranslatorFailureLeavesCacheUntouched(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\ndocs/b_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello")
	p.write("docs/b_original.md", "World")
	tr := &fakeTranslator{reply: func(req invoker.Request) (string, error) {
		if req.Text == "World" {
			return "", apperrors.Invoker("translation command failed", nil)
		}
		return glossary.Replace(req.Text), nil
	}}

	_, err := p.run(tr)
	require.Error(t, err)
	assert.True(t, p.exists("docs/a_ja.md"))
	assert.False(t, p.exists(".translations.json"))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	p.cfg.DryRun = true
	tr := &fakeTranslator{}

	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Zero(t, tr.calls())
	assert.Equal(t, 1, res.Count(StateDryRun))
	assert.Zero(t, res.Translated)
	assert.False(t, res.CacheWritten)
	assert.False(t, p.exists("docs/a_ja.md"))
	assert.False(t, p.exists(".translations.json"))
}

func TestRun_DryRunReportsPendingSegments(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)
	before := p.read(".translations.json")

	p.write("docs/a_original.md", "Hello\n\nUniverse")
	p.cfg.DryRun = true
	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Zero(t, tr.calls())
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, StateDryRun, res.Pairs[0].State)
	assert.Equal(t, 1, res.Pairs[0].Translated)
	assert.Equal(t, before, p.read(".translations.json"))
	assert.Equal(t, "こんにちは\n\n世界\n", p.read("docs/a_ja.md"))
}

func TestRun_MissingManifestIsNoop(t *testing.T) {
	p := newProject(t, "")
	tr := &fakeTranslator{}

	res, err := p.run(tr)
	require.NoError(t, err)
	assert.False(t, res.ManifestFound)
	assert.Zero(t, tr.calls())
}

func TestRun_MalformedCacheAborts(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello")
	p.write(".translations.json", "{not json")
	tr := &fakeTranslator{}

	_, err := p.run(tr)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))
	assert.Zero(t, tr.calls())
	assert.Equal(t, "{not json", p.read(".translations.json"))
}

func TestRun_ConcurrentIncremental(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	p.write("docs/a_original.md", "Hello\n\nWorld\n\nUniverse\n\nWorld Hello")
	p.cfg.Concurrency = 4
	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)

	assert.Equal(t, 3, tr.calls())
	assert.Equal(t, 1, res.Count(StateIncremental))
	assert.Equal(t, "こんにちは\n\n世界\n\n宇宙\n\n世界 こんにちは\n", p.read("docs/a_ja.md"))
}

func TestRun_CanceledContext(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, p.cfg, &fakeTranslator{})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.exists(".translations.json"))
}

func TestInspect(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\ndocs/b_original.md,en,ja\ndocs/c.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	p.write("docs/b_original.md", "World")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	p.write("docs/a_original.md", "Hello\n\nUniverse")
	p.write("docs/c.md", "Hello")

	statuses, err := Inspect(p.cfg)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, CacheStale, statuses[0].Cache)
	assert.Equal(t, 2, statuses[0].Segments)
	assert.Equal(t, 1, statuses[0].Pending)
	assert.Equal(t, CacheUpToDate, statuses[1].Cache)
	assert.Equal(t, CacheMissing, statuses[2].Cache)
	assert.Equal(t, "docs/c_ja.md", statuses[2].Target)
}

func TestInspect_EntryWithoutSegmentsHasNoPending(t *testing.T) {
	p := newProject(t, "docs/a_original.md,en,ja\n")
	p.write("docs/a_original.md", "Hello\n\nWorld")
	_, err := p.run(&fakeTranslator{})
	require.NoError(t, err)

	store, err := cache.Load(p.cfg.CachePath)
	require.NoError(t, err)
	entry, ok := store.Get("docs/a_original.md::en->ja")
	require.True(t, ok)
	entry.Segments = nil
	store.Put(entry)
	require.NoError(t, store.Save())

	p.write("docs/a_original.md", "Hello\n\nUniverse")
	statuses, err := Inspect(p.cfg)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, CacheStale, statuses[0].Cache)
	assert.Equal(t, 2, statuses[0].Segments)
	assert.Zero(t, statuses[0].Pending)

	tr := &fakeTranslator{}
	res, err := p.run(tr)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls())
	assert.Equal(t, 1, res.Count(StateFresh))
}
