package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
	"github.com/fixforward/fixforward/internal/application"
	"github.com/fixforward/fixforward/internal/domain"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		dryRun    bool
		yes       bool
		supersede bool
		ecosystem string
	)

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Diagnose failing tests, apply a generated fix and verify it",
		Long: "Run the project's tests, classify the failures, ask the fix generator for a patch, " +
			"apply it on a new branch and re-run the tests to score the result.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := parseEcosystem(ecosystem)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			shown := false
			ask, err := confirmer(out, yes || dryRun)
			if err != nil {
				return err
			}
			p, err := loadProject(pathArg(args), root.log)
			if err != nil {
				return err
			}

			confirm := func(prop *domain.PatchProposal) (bool, error) {
				fmt.Fprint(out, tui.RenderDiagnosis(prop.Diagnosis))
				shown = true
				return ask(prop)
			}

			report, err := p.fixService().Run(cmd.Context(), p.root, domain.RunOptions{
				Ecosystem: eco,
				DryRun:    dryRun,
				Supersede: supersede,
				RunID:     root.runID,
			}, confirm)
			if report != nil {
				if !shown {
					fmt.Fprint(out, tui.RenderDiagnosis(report.Diagnosis))
				}
				if report.Outcome == domain.OutcomeDryRun {
					fmt.Fprint(out, tui.RenderPatchPreview(report.Candidates, report.Originals, report.Explanation))
				}
				fmt.Fprint(out, tui.RenderFixReport(report))
			}
			if errors.Is(err, domain.ErrRollbackPending) {
				return fmt.Errorf("%w (run `fixforward rollback` or pass --supersede)", err)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the proposed patch without applying it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply the patch without asking")
	cmd.Flags().BoolVar(&supersede, "supersede", false, "Discard a pending rollback state instead of refusing")
	cmd.Flags().StringVar(&ecosystem, "ecosystem", "", "Skip detection (python, node, rust)")

	return cmd
}

// confirmer returns the hook shown before a patch is applied. With --yes
// the preview is printed and the patch applied; otherwise the user is
// asked, which needs a terminal.
func confirmer(out io.Writer, yes bool) (application.ConfirmFunc, error) {
	preview := func(p *domain.PatchProposal) {
		fmt.Fprint(out, tui.RenderPatchPreview(p.Candidates, p.Originals, p.Explanation))
	}
	if yes {
		return func(p *domain.PatchProposal) (bool, error) {
			preview(p)
			return true, nil
		}, nil
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return nil, errors.New("not running in a terminal; pass --yes to apply without confirmation or --dry-run to preview")
	}
	return func(p *domain.PatchProposal) (bool, error) {
		preview(p)
		ok := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Apply this patch to %d file(s)?", len(p.Candidates))).
			Affirmative("Apply").
			Negative("Cancel").
			Value(&ok).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return ok, err
	}, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
