package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/domain"
	"github.com/fixforward/fixforward/internal/domain/extract"
	"github.com/fixforward/fixforward/internal/domain/interpret"
	"github.com/fixforward/fixforward/internal/domain/verify"
)

// ConfirmFunc asks the user whether to apply a proposal.
type ConfirmFunc func(p *domain.PatchProposal) (bool, error)

// FixService orchestrates the fix pipeline:
// diagnose → prompt → generate → interpret → apply → re-run → verify.
type FixService struct {
	diagnose  *DiagnoseService
	generator domain.FixGenerator
	scanner   domain.ProjectScanner
	engine    *PatchEngine
	runner    domain.TestRunner
	history   domain.RunHistory
	cfg       domain.ProjectConfig
	log       *zap.Logger
}

func NewFixService(
	diagnose *DiagnoseService,
	generator domain.FixGenerator,
	scanner domain.ProjectScanner,
	engine *PatchEngine,
	runner domain.TestRunner,
	history domain.RunHistory,
	cfg domain.ProjectConfig,
	log *zap.Logger,
) *FixService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FixService{
		diagnose:  diagnose,
		generator: generator,
		scanner:   scanner,
		engine:    engine,
		runner:    runner,
		history:   history,
		cfg:       cfg,
		log:       log,
	}
}

// Run performs one full fix attempt. confirm may be nil, which applies
// without asking. The report is returned alongside ErrNoPatch so callers
// can still show the diagnosis.
func (s *FixService) Run(ctx context.Context, projectPath string, opts domain.RunOptions, confirm ConfirmFunc) (*domain.FixReport, error) {
	// 0. Refuse early if a previous patch is still pending, before spending
	// a test run and a generator call.
	if !opts.DryRun && !opts.Supersede {
		pending, err := s.engine.Pending()
		if err != nil {
			return nil, err
		}
		if pending != nil {
			return nil, domain.ErrRollbackPending
		}
	}

	// 1. Diagnose
	diag, err := s.diagnose.Diagnose(ctx, projectPath, opts.Ecosystem)
	if err != nil {
		return nil, err
	}
	report := &domain.FixReport{RunID: opts.RunID, Diagnosis: diag}
	if diag.Passing() {
		report.Outcome = domain.OutcomeAllPassing
		s.record(projectPath, report)
		return report, nil
	}

	// 2. Ask the generator
	prompt := BuildPrompt(projectPath, diag, s.cfg.Prompt)
	s.log.Debug("prompt assembled", zap.Int("bytes", len(prompt)), zap.Int("failures", len(diag.Classifications)))
	before, guarded := s.treeStatus(ctx, projectPath)
	response, err := s.generator.Generate(ctx, projectPath, prompt)
	if err != nil {
		return nil, err
	}
	if guarded {
		if after, ok := s.treeStatus(ctx, projectPath); ok && after != before {
			return nil, &domain.GitStateError{
				Op:  "generate",
				Err: errors.New("the fix generator changed the working tree itself; check `git status` before retrying"),
			}
		}
	}

	// 3. Interpret
	files, err := s.scanner.Scan(projectPath, s.cfg.ExcludeDirs...)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	res := interpret.Interpret(response, files, interpret.Options{FuzzyThreshold: s.cfg.Interpreter.FuzzyThreshold})
	for _, r := range res.Rejected {
		s.log.Warn("rejected patch candidate", zap.String("path", r.Path), zap.String("strategy", string(r.Strategy)), zap.String("reason", r.Reason))
	}
	proposal := &domain.PatchProposal{
		Strategy:    res.Strategy,
		Explanation: interpret.Explanation(response),
		Diagnosis:   diag,
	}
	proposal.Candidates, proposal.Originals = s.changedOnly(projectPath, res.Candidates)
	report.Candidates = proposal.Candidates
	report.Strategy = proposal.Strategy
	report.Explanation = proposal.Explanation
	report.Originals = proposal.Originals

	if len(proposal.Candidates) == 0 {
		report.Outcome = domain.OutcomeNoPatch
		s.record(projectPath, report)
		return report, domain.ErrNoPatch
	}

	// 4. Confirm
	if opts.DryRun {
		report.Outcome = domain.OutcomeDryRun
		s.record(projectPath, report)
		return report, nil
	}
	if confirm != nil {
		ok, err := confirm(proposal)
		if err != nil {
			return nil, fmt.Errorf("confirming patch: %w", err)
		}
		if !ok {
			report.Outcome = domain.OutcomeDeclined
			s.record(projectPath, report)
			return report, nil
		}
	}

	// 5. Apply
	state, err := s.engine.Apply(ctx, proposal.Candidates, projectPath, domain.ApplyOptions{Supersede: opts.Supersede})
	if err != nil {
		return nil, err
	}
	report.Rollback = state

	// 6. Verify
	after, err := s.runner.Run(ctx, projectPath, diag.Ecosystem)
	var runErr *domain.TestRunError
	switch {
	case errors.As(err, &runErr):
		report.Outcome = domain.OutcomeUnverified
		report.VerifyError = runErr.Error()
		s.log.Warn("verification run failed", zap.Error(err))
	case err != nil:
		return report, fmt.Errorf("re-running tests: %w", err)
	default:
		afterReport := extract.ParseRun(after)
		result := verify.NewScorer(verify.PolicyFromConfig(s.cfg.Scoring)).Score(diag.Failures(), afterReport.Failures)
		report.Verification = &result
		report.Outcome = domain.OutcomeApplied
	}

	s.record(projectPath, report)
	return report, nil
}

// treeStatus snapshots the porcelain status of projectPath. The second
// result is false outside a git repository.
func (s *FixService) treeStatus(ctx context.Context, projectPath string) (string, bool) {
	if s.engine == nil || !s.engine.git.IsRepo(projectPath) {
		return "", false
	}
	out, err := s.engine.git.Status(ctx, projectPath)
	if err != nil {
		s.log.Debug("reading git status", zap.Error(err))
		return "", false
	}
	return out, true
}

// changedOnly drops candidates whose content already matches the file on
// disk or whose path leaves the project, and returns the current content
// of the rest.
func (s *FixService) changedOnly(projectPath string, candidates []domain.PatchCandidate) ([]domain.PatchCandidate, map[string]string) {
	out := make([]domain.PatchCandidate, 0, len(candidates))
	originals := make(map[string]string, len(candidates))
	for _, c := range candidates {
		data, err := ReadProjectFile(projectPath, c.Path)
		var pt *domain.PathTraversalError
		switch {
		case errors.As(err, &pt):
			s.log.Warn("dropping patch candidate", zap.String("path", c.Path), zap.Error(err))
			continue
		case err == nil:
			if string(data) == c.Content {
				continue
			}
			originals[c.Path] = string(data)
		}
		out = append(out, c)
	}
	return out, originals
}

// record appends the run to history. Failing to record never fails the run.
func (s *FixService) record(projectPath string, r *domain.FixReport) {
	if s.history == nil {
		return
	}
	entry := domain.RunEntry{
		RunID:          r.RunID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Ecosystem:      r.Diagnosis.Ecosystem,
		FailuresBefore: len(r.Diagnosis.Failures()),
		FailuresAfter:  len(r.Diagnosis.Failures()),
		Outcome:        r.Outcome,
	}
	if r.Rollback != nil {
		entry.Branch = r.Rollback.AutoBranchName
	}
	if v := r.Verification; v != nil {
		entry.FailuresAfter = len(v.AfterFailures)
		entry.Resolved = len(v.Resolved)
		entry.Regressed = len(v.Regressed)
		entry.Confidence = v.Confidence
	}
	if err := s.history.Save(projectPath, entry); err != nil {
		s.log.Warn("saving run history", zap.Error(err))
	}
}
