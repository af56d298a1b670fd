package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/call-diarization/internal/annotation"
	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/queue"
	"github.com/codebuildervaibhav/call-diarization/internal/scoring"
	"github.com/codebuildervaibhav/call-diarization/internal/transcript"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// EvaluateInput names the tables to compare. An empty ReportsDir skips the
// report file; an empty RunID gets a fresh one.
type EvaluateInput struct {
	RunID          string
	ReferencePath  string
	HypothesisPath string
	ReportsDir     string
}

// Evaluate scores the hypothesis table against the reference table and
// persists the report through every configured output.
func (p *Pipeline) Evaluate(ctx context.Context, in EvaluateInput) (*types.Report, error) {
	ref, refBad, err := transcript.ReadFile(in.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("reference table: %w", err)
	}
	hyp, hypBad, err := transcript.ReadFile(in.HypothesisPath)
	if err != nil {
		return nil, fmt.Errorf("hypothesis table: %w", err)
	}
	p.logMalformed("reference", refBad)
	p.logMalformed("hypothesis", hypBad)

	report := p.evaluateTables(ctx, in.RunID, ref, hyp)
	report.SkippedRows += len(refBad) + len(hypBad)

	if err := p.Persist(ctx, report, in.ReportsDir); err != nil {
		return report, err
	}
	return report, nil
}

// EvaluateTables scores every recording present in both tables. Recordings
// found on one side only are excluded and listed in the report.
func (p *Pipeline) EvaluateTables(ctx context.Context, ref, hyp *transcript.Table) *types.Report {
	return p.evaluateTables(ctx, "", ref, hyp)
}

func (p *Pipeline) evaluateTables(ctx context.Context, runID string, ref, hyp *transcript.Table) *types.Report {
	if runID == "" {
		runID = uuid.New().String()
	}
	report := &types.Report{
		RunID:     runID,
		CreatedAt: p.now().UTC(),
	}
	log := logging.WithRun(p.log, report.RunID)
	log.Info().Int("reference_rows", ref.Len()).Int("hypothesis_rows", hyp.Len()).Msg("Evaluation started")

	refGroups := ref.Partition()
	hypGroups := hyp.Partition()

	var ids []string
	for id := range refGroups {
		if _, ok := hypGroups[id]; ok {
			ids = append(ids, id)
		} else {
			report.Excluded = append(report.Excluded, types.RecordingMismatch{RecordingID: id, Side: "reference"})
		}
	}
	for id := range hypGroups {
		if _, ok := refGroups[id]; !ok {
			report.Excluded = append(report.Excluded, types.RecordingMismatch{RecordingID: id, Side: "hypothesis"})
		}
	}
	sort.Strings(ids)
	sort.Slice(report.Excluded, func(i, j int) bool {
		return report.Excluded[i].RecordingID < report.Excluded[j].RecordingID
	})
	for _, m := range report.Excluded {
		log.Warn().Str("recording_id", m.RecordingID).Str("present_in", m.Side).Msg("Recording missing on one side, excluded from scoring")
		p.metrics.RecordMismatch(m.Side)
	}

	results := make([]types.MetricResult, len(ids))
	skipped := make([]int, len(ids))
	jobs := make([]*queue.Job, len(ids))
	for i, id := range ids {
		i, id := i, id
		jobs[i] = queue.NewJob(types.KindEvaluate, id, func(context.Context) error {
			refAnn, refSkipped := annotation.Build(refGroups[id])
			hypAnn, hypSkipped := annotation.Build(hypGroups[id])
			p.logMalformed("reference", refSkipped)
			p.logMalformed("hypothesis", hypSkipped)
			skipped[i] = len(refSkipped) + len(hypSkipped)

			if refAnn.Empty() {
				log.Warn().Str("recording_id", id).Str("source", "reference").Msg("No usable records")
			}
			if hypAnn.Empty() {
				log.Warn().Str("recording_id", id).Str("source", "hypothesis").Msg("No usable records")
			}

			d := scoring.ScoreDetailed(refAnn, hypAnn, refAnn.Text(), hypAnn.Text())
			d.Result.RecordingID = id
			results[i] = d.Result

			log.Info().
				Str("recording_id", id).
				Float64("wer", d.Result.WER).
				Float64("der", d.Result.DER).
				Float64("jer", d.Result.JER).
				Float64("detection_error_rate", d.Result.DetectionErrorRate).
				Int("mapped_speakers", len(d.Mapping)).
				Msg("Recording scored")
			return nil
		})
	}

	p.pool().Run(ctx, jobs)

	for i, j := range jobs {
		if j.Failed() {
			log.Error().Err(j.Error).Str("recording_id", ids[i]).Msg("Scoring failed")
			report.Failed = append(report.Failed, ids[i])
			continue
		}
		report.SkippedRows += skipped[i]
		report.Results = append(report.Results, results[i])
		r := results[i]
		p.metrics.RecordScore(r.WER, r.DER, r.JER, r.DetectionErrorRate)
	}

	report.Summary = scoring.Aggregate(report.Results)
	log.Info().
		Int("recordings", report.Summary.Recordings).
		Int("excluded", len(report.Excluded)).
		Int("failed", len(report.Failed)).
		Float64("average_wer", report.Summary.AverageWER).
		Float64("average_der", report.Summary.AverageDER).
		Msg("Evaluation finished")
	return report
}

// Persist writes the report file when reportsDir is set, saves the run and
// publishes its events. Only the report file and the store are fatal.
func (p *Pipeline) Persist(ctx context.Context, report *types.Report, reportsDir string) error {
	if reportsDir != "" {
		if err := p.sink.Ensure(reportsDir); err != nil {
			return err
		}
		if _, err := p.sink.WriteReport(reportsDir, report); err != nil {
			return err
		}
	}
	if p.store != nil {
		if err := p.store.SaveReport(report); err != nil {
			return fmt.Errorf("save run %s: %w", report.RunID, err)
		}
	}
	if p.events != nil {
		for _, r := range report.Results {
			if err := p.events.RecordingScored(ctx, report.RunID, r); err != nil {
				p.log.Warn().Err(err).Str("recording_id", r.RecordingID).Msg("Failed to publish score event")
			}
		}
		if err := p.events.RunCompleted(ctx, report); err != nil {
			p.log.Warn().Err(err).Str("run_id", report.RunID).Msg("Failed to publish run event")
		}
	}
	return nil
}

func (p *Pipeline) logMalformed(source string, errs []error) {
	if len(errs) == 0 {
		return
	}
	for _, err := range errs {
		p.log.Warn().Err(err).Str("source", source).Msg("Skipped malformed record")
	}
	p.metrics.RecordMalformed(source, len(errs))
}
