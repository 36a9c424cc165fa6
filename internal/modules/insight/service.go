package insight

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/modules/processing/ai"
	"github.com/reviewinsight/server/internal/modules/processing/markdown"
	"github.com/reviewinsight/server/internal/modules/processing/tabular"
)

// Prompter issues the four review prompts and returns raw replies.
type Prompter interface {
	Summarize(ctx context.Context, reviews models.ReviewSet) (string, error)
	Tag(ctx context.Context, reviews models.ReviewSet) (string, error)
	Analyze(ctx context.Context, reviews models.ReviewSet) (string, error)
	Suggest(ctx context.Context, reviews models.ReviewSet) (string, error)
}

// Dashboard is the merged table with its figures.
type Dashboard struct {
	DatasetID string                `json:"dataset_id"`
	FileName  string                `json:"file_name"`
	Stats     models.AggregateStats `json:"stats"`
	Report    *models.MergedReport  `json:"report"`
	Tags      []TagCount            `json:"tags"`
	// Suspect counts rows whose fields do not match the requested types.
	Suspect int `json:"suspect"`
}

// Report joins the dashboard with both narratives.
type Report struct {
	Dashboard   *Dashboard         `json:"dashboard"`
	Analysis    markdown.Narrative `json:"analysis"`
	Suggestions markdown.Narrative `json:"suggestions"`
}

// Service runs the review pipeline for one dataset per call.
type Service struct {
	prompter Prompter
	logger   *zap.Logger
}

func NewService(prompter Prompter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{prompter: prompter, logger: logger}
}

// Dashboard summarizes and tags the reviews concurrently, then merges and aggregates.
// Any failure fails the whole dashboard.
func (s *Service) Dashboard(ctx context.Context, ds *models.Dataset) (*Dashboard, error) {
	start := time.Now()
	var summaryReply, tagReply string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaryReply, err = s.prompter.Summarize(gctx, ds.Reviews)
		return err
	})
	g.Go(func() error {
		var err error
		tagReply, err = s.prompter.Tag(gctx, ds.Reviews)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash, err := s.build(ds, summaryReply, tagReply)
	if err != nil {
		s.logger.Warn("dashboard failed", zap.String("dataset", ds.ID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("dashboard built",
		zap.String("dataset", ds.ID),
		zap.Int("rows", dash.Stats.Rows),
		zap.Float64("satisfaction_mean", dash.Stats.SatisfactionMean),
		zap.Duration("elapsed", time.Since(start)),
	)
	return dash, nil
}

func (s *Service) build(ds *models.Dataset, summaryReply, tagReply string) (*Dashboard, error) {
	summary, err := tabular.Parse(summaryReply, models.SummaryHeader...)
	if err != nil {
		return nil, err
	}
	tags, err := tabular.Parse(tagReply, models.TagHeader...)
	if err != nil {
		return nil, err
	}

	suspect := s.logRejected(ds.ID, "summary", summary, tabular.SummaryChecks)
	suspect += s.logRejected(ds.ID, "tags", tags, tabular.TagChecks)

	report := Merge(summary, tags)
	stats, err := Aggregate(report, ds)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		DatasetID: ds.ID,
		FileName:  ds.FileName,
		Stats:     stats,
		Report:    report,
		Tags:      CountTags(report),
		Suspect:   suspect,
	}, nil
}

// logRejected reports rows failing field checks. The rows themselves stay in
// the table; acceptance is all-or-nothing at the CSV grammar level only.
func (s *Service) logRejected(datasetID, table string, t *models.ReviewTable, checks map[string]tabular.FieldCheck) int {
	_, rejected := tabular.Validate(t, checks)
	for _, r := range rejected {
		s.logger.Debug("suspect row",
			zap.String("dataset", datasetID),
			zap.String("table", table),
			zap.Int("position", r.Position),
			zap.String("reason", r.Reason),
		)
	}
	if len(rejected) > 0 {
		s.logger.Warn("reply rows failed field checks",
			zap.String("dataset", datasetID),
			zap.String("table", table),
			zap.Int("rejected", len(rejected)),
			zap.Int("rows", t.Len()),
		)
	}
	return len(rejected)
}

// Analysis returns the business analyst narrative.
func (s *Service) Analysis(ctx context.Context, ds *models.Dataset) (markdown.Narrative, error) {
	reply, err := s.prompter.Analyze(ctx, ds.Reviews)
	if err != nil {
		return markdown.Narrative{}, err
	}
	return markdown.RenderNarrative(reply, ai.MismatchSentinel), nil
}

// Suggestions returns the improvement recommendations narrative.
func (s *Service) Suggestions(ctx context.Context, ds *models.Dataset) (markdown.Narrative, error) {
	reply, err := s.prompter.Suggest(ctx, ds.Reviews)
	if err != nil {
		return markdown.Narrative{}, err
	}
	return markdown.RenderNarrative(reply, ai.MismatchSentinel), nil
}

// Report issues all four prompts concurrently and joins them.
func (s *Service) Report(ctx context.Context, ds *models.Dataset) (*Report, error) {
	var (
		dash        *Dashboard
		analysis    markdown.Narrative
		suggestions markdown.Narrative
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash, err = s.Dashboard(gctx, ds)
		return err
	})
	g.Go(func() error {
		var err error
		analysis, err = s.Analysis(gctx, ds)
		return err
	})
	g.Go(func() error {
		var err error
		suggestions, err = s.Suggestions(gctx, ds)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Dashboard: dash, Analysis: analysis, Suggestions: suggestions}, nil
}
