package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fixforward/fixforward/internal/adapters/outbound/detector"
	"github.com/fixforward/fixforward/internal/adapters/outbound/generator"
	"github.com/fixforward/fixforward/internal/adapters/outbound/runner"
	"github.com/fixforward/fixforward/internal/adapters/outbound/scanner"
	"github.com/fixforward/fixforward/internal/adapters/outbound/state"
	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
	"github.com/fixforward/fixforward/internal/application"
	"github.com/fixforward/fixforward/internal/domain"
	"github.com/fixforward/fixforward/internal/domain/interpret"
)

// registerTools registers all fixforward MCP tools on the given server.
func registerTools(s *server.MCPServer, deps *serverDeps) {
	// 1. fixforward_diagnose
	s.AddTool(
		mcplib.NewTool("fixforward_diagnose",
			mcplib.WithDescription("Run the project's tests and return every failure with its classification as JSON"),
			mcplib.WithString("ecosystem", mcplib.Description("python, node or rust (detected when omitted)")),
		),
		handleDiagnose(deps),
	)

	// 2. fixforward_classify_output
	s.AddTool(
		mcplib.NewTool("fixforward_classify_output",
			mcplib.WithDescription("Extract and classify failures from raw test-runner output without running anything"),
			mcplib.WithString("output", mcplib.Required(), mcplib.Description("Raw test-runner output")),
			mcplib.WithString("ecosystem", mcplib.Required(), mcplib.Description("python, node or rust")),
			mcplib.WithNumber("exit_code", mcplib.Description("Runner exit code (default 1)")),
		),
		handleClassifyOutput(),
	)

	// 3. fixforward_interpret
	s.AddTool(
		mcplib.NewTool("fixforward_interpret",
			mcplib.WithDescription("Extract whole-file edits from a fix generator response and return them with unified diffs against the project"),
			mcplib.WithString("response", mcplib.Required(), mcplib.Description("Free-form fix generator response")),
		),
		handleInterpret(deps),
	)

	// 4. fixforward_rollback_status
	s.AddTool(
		mcplib.NewTool("fixforward_rollback_status",
			mcplib.WithDescription("Returns the pending rollback state, if any"),
		),
		handleRollbackStatus(deps),
	)
}

func parseEcosystemArg(request mcplib.CallToolRequest) (domain.Ecosystem, error) {
	s, _ := request.GetArguments()["ecosystem"].(string)
	if s == "" {
		return "", nil
	}
	return domain.ParseEcosystem(s)
}

func handleDiagnose(deps *serverDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		eco, err := parseEcosystemArg(request)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		svc := application.NewDiagnoseService(
			detector.New(),
			runner.New(deps.cfg, deps.log),
			generator.New(deps.cfg, deps.log),
			deps.log,
		)
		diag, err := svc.Diagnose(ctx, deps.root, eco)
		if err != nil {
			return errorResult(fmt.Sprintf("diagnosis failed: %v", err)), nil
		}
		return jsonResult(diag)
	}
}

func handleClassifyOutput() server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		output, err := request.RequireString("output")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		eco, err := parseEcosystemArg(request)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		if eco == "" {
			return errorResult("ecosystem is required"), nil
		}

		exitCode := 1
		if v, ok := request.GetArguments()["exit_code"].(float64); ok {
			exitCode = int(v)
		}

		diag := application.Classify(&domain.TestRun{Ecosystem: eco, ExitCode: exitCode, Output: output})
		return jsonResult(diag)
	}
}

// interpretedFile is one candidate in the fixforward_interpret result.
type interpretedFile struct {
	domain.PatchCandidate
	Created bool   `json:"created"`
	Diff    string `json:"diff"`
}

func handleInterpret(deps *serverDeps) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		response, err := request.RequireString("response")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		files, err := scanner.New().Scan(deps.root, deps.cfg.ExcludeDirs...)
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		res := interpret.Interpret(response, files, interpret.Options{FuzzyThreshold: deps.cfg.Interpreter.FuzzyThreshold})

		result := struct {
			Strategy    domain.Strategy       `json:"strategy,omitempty"`
			Explanation string                `json:"explanation,omitempty"`
			Files       []interpretedFile     `json:"files"`
			Rejected    []interpret.Rejection `json:"rejected,omitempty"`
		}{
			Strategy:    res.Strategy,
			Explanation: interpret.Explanation(response),
			Files:       []interpretedFile{},
			Rejected:    res.Rejected,
		}
		for _, c := range res.Candidates {
			before, readErr := application.ReadProjectFile(deps.root, c.Path)
			var pt *domain.PathTraversalError
			if errors.As(readErr, &pt) {
				result.Rejected = append(result.Rejected, interpret.Rejection{Path: c.Path, Strategy: c.Strategy, Reason: pt.Reason})
				continue
			}
			created := readErr != nil
			result.Files = append(result.Files, interpretedFile{
				PatchCandidate: c,
				Created:        created,
				Diff:           tui.UnifiedDiff(c.Path, string(before), c.Content, created),
			})
		}
		return jsonResult(result)
	}
}

func handleRollbackStatus(deps *serverDeps) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		st, err := state.New(deps.home).Load()
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(struct {
			Pending bool                  `json:"pending"`
			State   *domain.RollbackState `json:"state,omitempty"`
		}{Pending: st != nil, State: st})
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
