package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/domain"
	"github.com/fixforward/fixforward/internal/domain/classify"
	"github.com/fixforward/fixforward/internal/domain/extract"
)

// DiagnoseService orchestrates the diagnosis pipeline:
// detect ecosystem → run tests → extract failures → classify.
type DiagnoseService struct {
	detector  domain.EcosystemDetector
	runner    domain.TestRunner
	generator domain.FixGenerator
	log       *zap.Logger
}

// NewDiagnoseService wires the pipeline. generator is only used by
// Explain and may be nil.
func NewDiagnoseService(
	detector domain.EcosystemDetector,
	runner domain.TestRunner,
	generator domain.FixGenerator,
	log *zap.Logger,
) *DiagnoseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiagnoseService{detector: detector, runner: runner, generator: generator, log: log}
}

// Diagnose runs the project's tests and classifies what failed. An empty
// eco means auto-detect.
func (s *DiagnoseService) Diagnose(ctx context.Context, projectPath string, eco domain.Ecosystem) (*domain.Diagnosis, error) {
	// 1. Ecosystem
	if eco == "" {
		detected, err := s.detector.Detect(projectPath)
		if err != nil {
			return nil, err
		}
		eco = detected
	}
	s.log.Debug("diagnosing", zap.String("project", projectPath), zap.String("ecosystem", string(eco)))

	// 2. Run tests
	run, err := s.runner.Run(ctx, projectPath, eco)
	if err != nil {
		return nil, fmt.Errorf("running tests: %w", err)
	}

	// 3. Extract and classify
	diag := Classify(run)
	diag.ProjectPath = projectPath
	s.log.Debug("diagnosis complete",
		zap.Int("exit_code", run.ExitCode),
		zap.Int("failures", len(diag.Report.Failures)),
	)
	return diag, nil
}

// Classify turns a finished test run into a Diagnosis without touching
// the filesystem.
func Classify(run *domain.TestRun) *domain.Diagnosis {
	report := extract.ParseRun(run)
	return &domain.Diagnosis{
		Ecosystem:       run.Ecosystem,
		Run:             run,
		Report:          report,
		Classifications: classify.All(report.Failures),
	}
}

// Explain asks the fix generator why a failure happened. Without a
// generator, or when it fails, the classifier's own summary is returned.
func (s *DiagnoseService) Explain(ctx context.Context, projectPath string, c domain.Classification) string {
	fallback := fmt.Sprintf("(%s) %s", c.Category, c.Summary)
	if s.generator == nil {
		return fallback
	}
	out, err := s.generator.Generate(ctx, projectPath, ExplainPrompt(c))
	if err != nil {
		s.log.Warn("explanation unavailable", zap.String("test", c.Failure.TestName), zap.Error(err))
		return fallback
	}
	return out
}
