package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Placeholders expanded in generator args.
const (
	PromptPlaceholder = "{prompt}"
	RootPlaceholder   = "{root}"
)

// DefaultTestCommands are the per-ecosystem test invocations.
var DefaultTestCommands = map[Ecosystem][]string{
	EcosystemPython: {"python3", "-m", "pytest", "--tb=long", "-v", "-rfE"},
	EcosystemNode:   {"npm", "test", "--"},
	EcosystemRust:   {"cargo", "test"},
}

// ProjectConfig holds project-level configuration loaded from .fixforward.yaml.
type ProjectConfig struct {
	TestCommands map[Ecosystem][]string `yaml:"test_commands" json:"test_commands,omitempty" validate:"omitempty,dive,min=1,dive,required"`
	TestTimeout  string                 `yaml:"test_timeout"  json:"test_timeout,omitempty"  validate:"omitempty,duration"`
	Generator    GeneratorConfig        `yaml:"generator"     json:"generator"`
	Interpreter  InterpreterConfig      `yaml:"interpreter"   json:"interpreter"`
	Prompt       PromptConfig           `yaml:"prompt"        json:"prompt"`
	Scoring      ScoringConfig          `yaml:"scoring"       json:"scoring"`
	BranchPrefix string                 `yaml:"branch_prefix" json:"branch_prefix,omitempty"`
	ExcludeDirs  []string               `yaml:"exclude_dirs"  json:"exclude_dirs,omitempty" validate:"dive,required"`
}

// GeneratorConfig describes how to invoke the external fix generator.
type GeneratorConfig struct {
	Command string   `yaml:"command" json:"command" validate:"required"`
	Args    []string `yaml:"args"    json:"args"`
	Timeout string   `yaml:"timeout" json:"timeout" validate:"omitempty,duration"`
}

type InterpreterConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold" validate:"gt=0,lte=1"`
}

type PromptConfig struct {
	MaxFailures    int `yaml:"max_failures"     json:"max_failures"     validate:"gte=1,lte=20"`
	MaxSourceBytes int `yaml:"max_source_bytes" json:"max_source_bytes" validate:"gte=0"`
}

// ScoringConfig tunes the default verification policy.
type ScoringConfig struct {
	MaxConfidence     float64 `yaml:"max_confidence"     json:"max_confidence"     validate:"gt=0,lte=1"`
	RegressionCap     float64 `yaml:"regression_cap"     json:"regression_cap"     validate:"gte=0,lte=1"`
	RegressionPenalty float64 `yaml:"regression_penalty" json:"regression_penalty" validate:"gte=0,lte=1"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() ProjectConfig {
	cmds := make(map[Ecosystem][]string, len(DefaultTestCommands))
	for eco, argv := range DefaultTestCommands {
		cmds[eco] = append([]string(nil), argv...)
	}
	return ProjectConfig{
		TestCommands: cmds,
		TestTimeout:  "120s",
		Generator: GeneratorConfig{
			Command: "gh",
			Args: []string{
				"copilot", "--",
				"-p", PromptPlaceholder,
				"--add-dir", RootPlaceholder,
				"--silent",
			},
			Timeout: "180s",
		},
		Interpreter: InterpreterConfig{FuzzyThreshold: 0.80},
		Prompt:      PromptConfig{MaxFailures: 3, MaxSourceBytes: 64 * 1024},
		Scoring: ScoringConfig{
			MaxConfidence:     0.95,
			RegressionCap:     0.50,
			RegressionPenalty: 0.10,
		},
		BranchPrefix: "fixforward/",
	}
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c ProjectConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return describeValidation(err)
	}

	for eco := range c.TestCommands {
		if _, err := ParseEcosystem(string(eco)); err != nil {
			return fmt.Errorf("test_commands: %w", err)
		}
	}

	if c.Scoring.RegressionCap >= c.Scoring.MaxConfidence {
		return fmt.Errorf("scoring.regression_cap (%.2f) must be below scoring.max_confidence (%.2f)",
			c.Scoring.RegressionCap, c.Scoring.MaxConfidence)
	}

	if p := c.BranchPrefix; p != "" {
		if strings.ContainsAny(p, " ~^:?*[\\") || strings.Contains(p, "..") || strings.HasPrefix(p, "-") {
			return fmt.Errorf("branch_prefix %q is not a valid git ref prefix", p)
		}
	}

	return nil
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
}

// TestCommand returns the argv used to run the given ecosystem's tests.
func (c ProjectConfig) TestCommand(eco Ecosystem) []string {
	if argv, ok := c.TestCommands[eco]; ok && len(argv) > 0 {
		return argv
	}
	return DefaultTestCommands[eco]
}

// TestTimeoutDuration parses TestTimeout, falling back to two minutes.
func (c ProjectConfig) TestTimeoutDuration() time.Duration {
	return parseDurationOr(c.TestTimeout, 120*time.Second)
}

// GeneratorTimeoutDuration parses Generator.Timeout, falling back to three minutes.
func (c ProjectConfig) GeneratorTimeoutDuration() time.Duration {
	return parseDurationOr(c.Generator.Timeout, 180*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
