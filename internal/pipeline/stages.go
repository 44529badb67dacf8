package pipeline

import (
	"context"
	"fmt"
	"maps"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/dump"
	"github.com/wikiroute/wikiroute/internal/export"
	"github.com/wikiroute/wikiroute/internal/links"
	"github.com/wikiroute/wikiroute/internal/metrics"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/pages"
	"github.com/wikiroute/wikiroute/internal/rank"
	"github.com/wikiroute/wikiroute/internal/redirects"
	"github.com/wikiroute/wikiroute/internal/titles"
)

// pages splits the page dump into canonical titles and redirect candidates.
func (r *Runner) pages(ctx context.Context) (result, error) {
	if r.cfg.PageDump == "" {
		return result{}, fmt.Errorf("%w: no page dump configured (PAGE_DUMP)", models.ErrMissingArtifact)
	}

	targets, err := r.redirectTargets(ctx)
	if err != nil {
		return result{}, err
	}

	f, err := dump.Open(r.cfg.PageDump)
	if err != nil {
		return result{}, err
	}
	defer f.Close()

	sink, err := pages.NewFileSink(r.cfg.DataDir)
	if err != nil {
		return result{}, err
	}
	defer sink.Abort()

	ex := pages.NewExtractor(r.log, targets, r.cfg.ProgressEvery)
	ex.OnProgress = func(st pages.Stats) {
		r.progress(StagePages, st.Counters(), f.Progress())
	}

	st, err := ex.Extract(ctx, f, sink)

	metrics.RowsTotal.WithLabelValues(StagePages).Add(float64(st.Rows))
	metrics.MalformedRowsTotal.WithLabelValues(StagePages).Add(float64(st.Malformed))

	if err != nil {
		return result{counters: st.Counters()}, err
	}

	if err := sink.Commit(); err != nil {
		return result{counters: st.Counters()}, err
	}

	return result{counters: st.Counters(), outputs: sink.Outputs()}, nil
}

func (r *Runner) redirectTargets(ctx context.Context) (map[models.PageID]string, error) {
	if r.cfg.RedirectDump == "" {
		return nil, nil
	}

	f, err := dump.Open(r.cfg.RedirectDump)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	targets, st, err := pages.LoadRedirectTargets(ctx, r.log, f)
	metrics.MalformedRowsTotal.WithLabelValues("redirect_targets").Add(float64(st.Malformed))

	return targets, err
}

// links resolves redirects and writes the resolved edge artifact. The title
// map is complete before any redirect is resolved, and the redirect map is
// complete before any link is read.
func (r *Runner) links(ctx context.Context) (result, error) {
	if r.cfg.LinkDump == "" {
		return result{}, fmt.Errorf("%w: no link dump configured (LINK_DUMP)", models.ErrMissingArtifact)
	}

	redirectMap, rst, err := redirects.Load(ctx, r.cfg.DataDir, r.log)
	if err != nil {
		return result{counters: rst.Counters()}, err
	}

	metrics.RedirectsTotal.WithLabelValues("resolved").Add(float64(rst.Resolved))
	metrics.RedirectsTotal.WithLabelValues("unresolved").Add(float64(rst.Unresolved))

	mapPath := r.cfg.Path(artifact.RedirectMap)
	if err := redirectMap.Save(mapPath); err != nil {
		return result{counters: rst.Counters()}, err
	}

	src := &links.DumpSource{
		Path:      r.cfg.LinkDump,
		Extractor: links.NewExtractor(redirectMap, r.log, r.cfg.QueueSize, r.cfg.ProgressEvery),
	}
	src.Extractor.OnProgress = func(st links.Stats) {
		r.progress(StageLinks, st.Counters(), src.Progress())
	}

	rawPath := r.cfg.Path(artifact.RawLinks)
	_, err = links.Persist(ctx, src, rawPath)

	st := src.Stats()
	counters := merge(rst.Counters(), st.Counters())

	metrics.RowsTotal.WithLabelValues(StageLinks).Add(float64(st.Rows))
	metrics.MalformedRowsTotal.WithLabelValues(StageLinks).Add(float64(st.Malformed))
	metrics.EdgesTotal.WithLabelValues(StageLinks, "emitted").Add(float64(st.Edges))

	if err != nil {
		return result{counters: counters}, err
	}

	return result{counters: counters, outputs: []string{mapPath, rawPath}}, nil
}

// rank counts degrees over the edge artifact and writes the retained set.
func (r *Runner) rank(ctx context.Context) (result, error) {
	rawPath := r.cfg.Path(artifact.RawLinks)
	if err := artifact.Require(rawPath); err != nil {
		return result{}, err
	}

	src := links.NewArtifactSource(rawPath)

	degrees, err := rank.CountDegrees(ctx, src, r.log, r.cfg.ProgressEvery)
	if err != nil {
		return result{}, err
	}

	scores := rank.TopK(degrees, r.cfg.TopK)
	retained := rank.NewRetainedSetFromScores(scores)

	idsPath := r.cfg.Path(artifact.TopIDs)
	scoresPath := r.cfg.Path(artifact.TopScores)

	counters := map[string]int64{
		"edges":          degrees.Edges(),
		"nodes":          int64(degrees.Len()),
		"eligible":       int64(rank.Eligible(degrees)),
		"retained":       int64(retained.Len()),
		"retained_bytes": int64(retained.SizeInBytes()),
		"skipped_lines":  src.Skipped(),
	}

	if err := retained.Save(idsPath, scoresPath); err != nil {
		return result{counters: counters}, err
	}

	metrics.RetainedNodes.Set(float64(retained.Len()))

	return result{counters: counters, outputs: []string{idsPath, scoresPath}}, nil
}

// export writes the weighted graph between retained nodes. The retained set
// is loaded in full before the edge artifact is read.
func (r *Runner) export(ctx context.Context) (result, error) {
	rawPath := r.cfg.Path(artifact.RawLinks)
	idsPath := r.cfg.Path(artifact.TopIDs)

	if err := artifact.Require(rawPath, idsPath); err != nil {
		return result{}, err
	}

	retained, err := rank.LoadRetainedSet(ctx, idsPath)
	if err != nil {
		return result{}, err
	}

	g, st, err := export.Collect(ctx, links.NewArtifactSource(rawPath), retained, r.log)
	if err != nil {
		return result{counters: st.Counters()}, err
	}

	metrics.EdgesTotal.WithLabelValues(StageExport, "kept").Add(float64(st.Scanned - st.Skipped))
	metrics.EdgesTotal.WithLabelValues(StageExport, "skipped").Add(float64(st.Skipped))

	graphPath := r.cfg.Path(artifact.Graph)
	if err := g.Save(graphPath); err != nil {
		return result{counters: st.Counters()}, err
	}

	metrics.GraphEdges.Set(float64(g.Len()))

	return result{counters: st.Counters(), outputs: []string{graphPath}}, nil
}

// titles writes the id/title index restricted to retained nodes.
func (r *Runner) titles(ctx context.Context) (result, error) {
	canonicalPath := r.cfg.Path(artifact.CanonicalTitles)
	idsPath := r.cfg.Path(artifact.TopIDs)

	if err := artifact.Require(canonicalPath, idsPath); err != nil {
		return result{}, err
	}

	retained, err := rank.LoadRetainedSet(ctx, idsPath)
	if err != nil {
		return result{}, err
	}

	outPath := r.cfg.Path(artifact.TopTitles)

	_, st, err := titles.Build(ctx, canonicalPath, retained, retained.Len(), outPath, r.log)
	if err != nil {
		return result{counters: st.Counters()}, err
	}

	return result{counters: st.Counters(), outputs: []string{outPath}}, nil
}

func merge(ms ...map[string]int64) map[string]int64 {
	out := make(map[string]int64)
	for _, m := range ms {
		maps.Copy(out, m)
	}

	return out
}
