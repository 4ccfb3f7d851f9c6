package cli

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/adapters/outbound/config"
	"github.com/fixforward/fixforward/internal/adapters/outbound/detector"
	"github.com/fixforward/fixforward/internal/adapters/outbound/fsutil"
	"github.com/fixforward/fixforward/internal/adapters/outbound/generator"
	"github.com/fixforward/fixforward/internal/adapters/outbound/gitrepo"
	"github.com/fixforward/fixforward/internal/adapters/outbound/history"
	"github.com/fixforward/fixforward/internal/adapters/outbound/runner"
	"github.com/fixforward/fixforward/internal/adapters/outbound/scanner"
	"github.com/fixforward/fixforward/internal/adapters/outbound/state"
	"github.com/fixforward/fixforward/internal/application"
	"github.com/fixforward/fixforward/internal/domain"
)

// project bundles the resolved root, its configuration and the per-user
// fixforward home every command works against.
type project struct {
	root string
	home string
	cfg  domain.ProjectConfig
	log  *zap.Logger
}

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func loadProject(path string, log *zap.Logger) (*project, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.New().Load(root)
	if err != nil {
		return nil, err
	}
	home, err := fsutil.Home()
	if err != nil {
		return nil, err
	}
	log.Debug("project loaded", zap.String("root", root), zap.String("home", home))
	return &project{root: root, home: home, cfg: cfg, log: log}, nil
}

func (p *project) store() *state.Store {
	return state.New(p.home)
}

func (p *project) history() *history.FileHistory {
	return history.New(p.home)
}

func (p *project) engine() *application.PatchEngine {
	return application.NewPatchEngine(gitrepo.New(p.log), p.store(), p.log,
		application.WithBranchPrefix(p.cfg.BranchPrefix))
}

func (p *project) diagnoseService() *application.DiagnoseService {
	return application.NewDiagnoseService(
		detector.New(),
		runner.New(p.cfg, p.log),
		generator.New(p.cfg, p.log),
		p.log,
	)
}

func (p *project) fixService() *application.FixService {
	return application.NewFixService(
		p.diagnoseService(),
		generator.New(p.cfg, p.log),
		scanner.New(),
		p.engine(),
		runner.New(p.cfg, p.log),
		p.history(),
		p.cfg,
		p.log,
	)
}

// parseEcosystem accepts an empty flag as "detect".
func parseEcosystem(s string) (domain.Ecosystem, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseEcosystem(s)
}
