package pipeline

import (
	"context"
	"fmt"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/cache"
	"github.com/oukeidos/tdocs/internal/files"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/logger"
	"github.com/oukeidos/tdocs/internal/manifest"
	"github.com/oukeidos/tdocs/internal/sanitize"
	"github.com/oukeidos/tdocs/internal/segment"
)

const previewWidth = 60

// Run processes every manifest row against the cache and translates what
// changed. Row problems are logged and skipped. Configuration, translator and
// consistency failures abort the run; the cache is then left untouched.
func Run(ctx context.Context, cfg Config, tr invoker.Translator) (Result, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, apperrors.Config(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	rows, found, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return Result{}, err
	}
	if !found {
		logger.Info("Manifest not found; nothing to translate", "path", cfg.ManifestPath)
		return Result{}, nil
	}
	res := Result{ManifestFound: true}
	if len(rows) == 0 {
		logger.Info("No translation targets found in manifest", "path", cfg.ManifestPath)
		return res, nil
	}

	store, err := cache.Load(cfg.CachePath)
	if err != nil {
		return res, err
	}

	d := &driver{
		cfg:    cfg,
		store:  store,
		runner: invoker.NewRunner(tr, cfg.Concurrency),
		result: &res,
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := d.processRow(ctx, row); err != nil {
			return res, err
		}
	}

	if store.Dirty() && !cfg.DryRun {
		if err := store.Save(); err != nil {
			return res, err
		}
		res.CacheWritten = true
		logger.Info("Updated cache", "path", store.Path())
	}

	switch {
	case res.Translated > 0:
		logger.Info(fmt.Sprintf("Completed %d translation(s)", res.Translated))
	case cfg.DryRun:
		logger.Info("No translations required (dry-run)")
	default:
		logger.Info("No translations required")
	}
	return res, nil
}

type driver struct {
	cfg    Config
	store  *cache.Store
	runner invoker.Runner
	result *Result
}

// pairJob carries everything known about one source document and target.
type pairJob struct {
	source     string
	target     string
	sourceLang string
	targetLang string
	content    string
	sourceHash string
}

func (j pairJob) outcome(state State) PairOutcome {
	return PairOutcome{Source: j.source, Target: j.target, SourceLang: j.sourceLang, TargetLang: j.targetLang, State: state}
}

func (j pairJob) attrs() []any {
	return []any{"source", j.source, "pair", pairLabel(j.sourceLang, j.targetLang)}
}

func (d *driver) record(o PairOutcome) {
	d.result.Pairs = append(d.result.Pairs, o)
	if o.State == StateFresh || o.State == StateIncremental {
		d.result.Translated++
	}
}

func (d *driver) skipRow(row manifest.Row, state State, reason string) {
	logger.Warn("Skipping manifest row", "line", row.Line, "source", row.Path, "reason", reason)
	d.record(PairOutcome{Source: row.Path, SourceLang: row.SourceLang, State: state, Reason: reason})
}

func (d *driver) processRow(ctx context.Context, row manifest.Row) error {
	if err := row.Validate(); err != nil {
		d.skipRow(row, StateSkipInvalidRow, err.Error())
		return nil
	}
	if !d.cfg.AllowedLanguages.Contains(row.SourceLang) {
		d.skipRow(row, StateSkipDisallowed, fmt.Sprintf("source language %q is not allowed", row.SourceLang))
		return nil
	}
	sourceAbs, err := files.Resolve(d.cfg.Root, row.Path)
	if err != nil {
		d.skipRow(row, StateSkipInvalidRow, err.Error())
		return nil
	}
	data, ok, err := files.ReadIfExists(sourceAbs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", row.Path, err)
	}
	if !ok {
		d.skipRow(row, StateSkipMissingSource, "source file not found")
		return nil
	}

	content := string(data)
	sourceHash := segment.Hash(content)
	for _, targetLang := range row.TargetLangs {
		job := pairJob{
			source:     row.Path,
			target:     DeriveTargetPath(row.Path, row.SourceLang, targetLang),
			sourceLang: row.SourceLang,
			targetLang: targetLang,
			content:    content,
			sourceHash: sourceHash,
		}
		if err := d.processPair(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) processPair(ctx context.Context, job pairJob) error {
	if !d.cfg.AllowedLanguages.Contains(job.targetLang) {
		reason := fmt.Sprintf("target language %q is not allowed", job.targetLang)
		logger.Warn("Skipping pair", append(job.attrs(), "reason", reason)...)
		o := job.outcome(StateSkipDisallowed)
		o.Reason = reason
		d.record(o)
		return nil
	}
	if job.targetLang == job.sourceLang {
		logger.Debug("Skipping pair with identical languages", job.attrs()...)
		d.record(job.outcome(StateSkipSameLang))
		return nil
	}

	entry, cached := d.store.Get(cache.Key(job.source, job.sourceLang, job.targetLang))
	if cached && entry.SourceHash == job.sourceHash {
		logger.Info("Up-to-date", job.attrs()...)
		d.record(job.outcome(StateUpToDate))
		return nil
	}

	segments := segment.Split(job.content)
	if (!cached || len(entry.Segments) == 0) && translatable(segments) {
		if d.cfg.DryRun {
			logger.Info("(dry-run) Would translate entire document", append(job.attrs(), "segments", len(segments))...)
			o := job.outcome(StateDryRun)
			o.Segments = len(segments)
			d.record(o)
			return nil
		}
		done, err := d.translateWhole(ctx, job, segments)
		if err != nil || done {
			return err
		}
		logger.Warn("Unable to align segments; falling back to per-segment translation", job.attrs()...)
		entry = cache.Entry{}
	}
	return d.translateIncremental(ctx, job, segments, entry.Segments)
}

// translateWhole translates the document in one call. Blank segments keep an
// empty translation; the non-blank segments of the response are paired with
// the non-blank source segments by position. It returns false when the counts
// differ or a paired segment is unusable.
func (d *driver) translateWhole(ctx context.Context, job pairJob, segments []segment.Segment) (bool, error) {
	req := invoker.Request{
		Text:       segment.Normalize(job.content),
		SourceLang: job.sourceLang,
		TargetLang: job.targetLang,
		SourcePath: job.source,
		TargetPath: job.target,
	}
	var doc string
	err := d.runner.Run(ctx, []invoker.Request{req}, func(_ int, raw string) error {
		doc = sanitize.Document(raw)
		if sanitize.Unusable(doc) {
			return apperrors.Invoker(fmt.Sprintf("translator returned an unusable result for %s (%s)", job.source, pairLabel(job.sourceLang, job.targetLang)), nil)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	wanted := contentPositions(segments)
	translated := nonBlankBodies(segment.Split(doc))
	if len(translated) != len(wanted) {
		logger.Debug("Segment count mismatch", append(job.attrs(), "source_segments", len(wanted), "translated_segments", len(translated))...)
		return false, nil
	}
	results := make([]segment.Result, len(segments))
	for i, seg := range segments {
		results[i] = segment.Result{Hash: seg.Hash(), Separator: seg.Separator}
	}
	for k, i := range wanted {
		tr := sanitize.Text(translated[k])
		if sanitize.Unusable(tr) {
			logger.Debug("Unusable segment in document translation", append(job.attrs(), "segment", i+1)...)
			return false, nil
		}
		results[i].Translation = tr
	}

	if err := d.commit(job, results); err != nil {
		return false, err
	}
	logger.Info("Translated document", append(job.attrs(), "target", job.target, "segments", len(segments))...)
	o := job.outcome(StateFresh)
	o.Segments, o.Translated, o.Calls = len(segments), len(segments), 1
	d.record(o)
	return true, nil
}

func (d *driver) translateIncremental(ctx context.Context, job pairJob, segments []segment.Segment, stored []cache.StoredSegment) error {
	p := newPlan(segments, stored)
	total := len(segments)

	if len(p.pending) == 0 {
		if d.cfg.DryRun {
			logger.Info("(dry-run) No segment changes detected", job.attrs()...)
			o := job.outcome(StateDryRun)
			o.Segments, o.Reused = total, p.reused
			d.record(o)
			return nil
		}
		results, err := segment.Complete(p.slots)
		if err != nil {
			return err
		}
		if err := d.commit(job, results); err != nil {
			return err
		}
		logger.Info("Reused cached translations", append(job.attrs(), "target", job.target, "segments", total)...)
		o := job.outcome(StateReused)
		o.Segments, o.Reused = total, p.reused
		d.record(o)
		return nil
	}

	if d.cfg.DryRun {
		logger.Info(fmt.Sprintf("(dry-run) Would translate %d segment(s)", len(p.pending)), append(job.attrs(), "reused", p.reused)...)
		for _, i := range p.pending {
			logger.Info("(dry-run) Pending segment", "source", job.source, "segment", fmt.Sprintf("%d/%d", i+1, total), "preview", logger.Preview(segments[i].Body, previewWidth))
		}
		o := job.outcome(StateDryRun)
		o.Segments, o.Reused, o.Translated = total, p.reused, len(p.pending)
		d.record(o)
		return nil
	}

	reqs := make([]invoker.Request, len(p.pending))
	for k, i := range p.pending {
		reqs[k] = invoker.Request{
			Text:       segments[i].Body,
			SourceLang: job.sourceLang,
			TargetLang: job.targetLang,
			SourcePath: invoker.SegmentLabel(job.source, i, total),
			TargetPath: invoker.SegmentLabel(job.target, i, total),
		}
	}
	err := d.runner.Run(ctx, reqs, func(k int, raw string) error {
		i := p.pending[k]
		tr := sanitize.Text(raw)
		if sanitize.Unusable(tr) {
			return apperrors.Invoker(fmt.Sprintf("translator returned an unusable result for %s segment %d/%d (%s)", job.source, i+1, total, pairLabel(job.sourceLang, job.targetLang)), nil)
		}
		p.fill(i, tr)
		logger.Info("Translated segment", append(job.attrs(), "segment", fmt.Sprintf("%d/%d", i+1, total))...)
		return nil
	})
	if err != nil {
		return err
	}

	results, err := segment.Complete(p.slots)
	if err != nil {
		return err
	}
	if err := d.commit(job, results); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Updated %s with %d new segment(s)", job.target, len(p.pending)), job.attrs()...)
	o := job.outcome(StateIncremental)
	o.Segments, o.Reused, o.Translated, o.Calls = total, p.reused, len(p.pending), len(p.pending)
	d.record(o)
	return nil
}

// commit writes the reconstructed target and records the cache entry.
func (d *driver) commit(job pairJob, results []segment.Result) error {
	targetAbs, err := files.Resolve(d.cfg.Root, job.target)
	if err != nil {
		return fmt.Errorf("invalid target path %s: %w", job.target, err)
	}
	if err := files.RejectSymlinkWithin(d.cfg.Root, targetAbs); err != nil {
		return err
	}
	out := segment.EnsureTrailingNewline(segment.Reconstruct(results))
	if err := files.AtomicWrite(targetAbs, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", job.target, err)
	}
	d.store.Put(cache.Entry{
		Source:       job.source,
		Target:       job.target,
		SourceLang:   job.sourceLang,
		TargetLang:   job.targetLang,
		SourceHash:   job.sourceHash,
		TranslatedAt: d.cfg.Now().UTC(),
		Segments:     storedSegments(results),
	})
	return nil
}
