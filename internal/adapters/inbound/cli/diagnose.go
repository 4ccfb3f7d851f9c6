package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
	"github.com/fixforward/fixforward/internal/domain"
)

// diagnosisJSON is the --json shape of `fixforward diagnose`.
type diagnosisJSON struct {
	*domain.Diagnosis
	Explanations []string `json:"explanations,omitempty"`
}

func newDiagnoseCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		explain    bool
		ecosystem  string
	)

	cmd := &cobra.Command{
		Use:   "diagnose [path]",
		Short: "Run the tests and classify the failures",
		Long:  "Run the project's tests and show each failure with its category and confidence. Nothing is changed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := parseEcosystem(ecosystem)
			if err != nil {
				return err
			}
			p, err := loadProject(pathArg(args), root.log)
			if err != nil {
				return err
			}

			svc := p.diagnoseService()
			diag, err := svc.Diagnose(cmd.Context(), p.root, eco)
			if err != nil {
				return fmt.Errorf("diagnosis failed: %w", err)
			}

			var explanations []string
			if explain {
				for _, c := range diag.Classifications {
					explanations = append(explanations, svc.Explain(cmd.Context(), p.root, c))
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(diagnosisJSON{Diagnosis: diag, Explanations: explanations})
			}
			fmt.Fprint(out, tui.RenderDiagnosis(diag))
			for i, e := range explanations {
				fmt.Fprintf(out, "  %s\n  %s\n\n", diag.Classifications[i].Failure.TestName, e)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the diagnosis as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "Ask the fix generator to explain each failure")
	cmd.Flags().StringVar(&ecosystem, "ecosystem", "", "Skip detection (python, node, rust)")

	return cmd
}
