package cli

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swagger2client/internal/codegen"
	"github.com/mark3labs/swagger2client/internal/emitter/goemitter"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/postprocess"
	genspec "github.com/mark3labs/swagger2client/internal/spec"
)

// Post-processing modes accepted by --post-process.
const (
	PostProcessImports = "imports"
	PostProcessNone    = "none"
)

const defaultOutDir = "client"

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, CLI overrides, and positional args.
type GenerateConfig struct {
	Input       string
	Out         string
	ModulePath  string
	PackageName string
	PostProcess string
	FixCmd      string
	Strict      bool
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	Paths       []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool

	stdout io.Writer
	stderr io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Out:         defaultOutDir,
		ModulePath:  codegen.DefaultModulePath,
		PostProcess: PostProcessImports,
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <input> [output]",
		Short: "Generate a typed Go client from an OpenAPI/Swagger document",
		Long: "Generate a typed Go client module from an OpenAPI/Swagger document. " +
			"<input> is a local path or an http(s) URL; [output] defaults to ./client. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swagger2client generate spec.yaml ./petstore --module example.com/petstore
  swagger2client --config config.yaml generate --force --dry-run`),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 2 {
				return newUsageError(fmt.Sprintf("generate: expected at most 2 arguments, got %d\n\n%s", len(args), cmd.UsageString()))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args)
			if err != nil {
				return err
			}
			cfg.stdout = cmd.OutOrStdout()
			cfg.stderr = cmd.ErrOrStderr()
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("module", "", "Module path of the generated client (default \"client\")")
	flags.String("package", "", "Package name of the generated root package (derived from --module when omitted)")
	flags.String("post-process", "", "Formatting pass over the generated tree (imports|none)")
	flags.String("fix-cmd", "", "External command run in the generated tree after formatting; a failure aborts the run")
	flags.Bool("strict", false, "Fail on documents that do not pass OpenAPI validation")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("paths", nil, "Only include paths matching one of these regular expressions")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command, args []string) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if len(args) > 1 {
		cfg.Out = args[1]
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"module", &cfg.ModulePath},
		{"package", &cfg.PackageName},
		{"post-process", &cfg.PostProcess},
		{"fix-cmd", &cfg.FixCmd},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(value)
	}

	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeTags(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeTags(value)
	}
	if flags.Changed("methods") {
		value, err := flags.GetStringSlice("methods")
		if err != nil {
			return err
		}
		cfg.Methods = value
	}
	if flags.Changed("paths") {
		value, err := flags.GetStringSlice("paths")
		if err != nil {
			return err
		}
		cfg.Paths = value
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"strict", &cfg.Strict},
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"verbose", &cfg.Verbose},
	}
	for _, f := range boolFlags {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = defaultOutDir
	}
	c.ModulePath = strings.TrimSpace(c.ModulePath)
	if c.ModulePath == "" {
		c.ModulePath = codegen.DefaultModulePath
	}
	c.PackageName = strings.TrimSpace(c.PackageName)
	c.PostProcess = strings.ToLower(strings.TrimSpace(c.PostProcess))
	if c.PostProcess == "" {
		c.PostProcess = PostProcessImports
	}
	c.FixCmd = strings.TrimSpace(c.FixCmd)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.Paths = sanitizeTags(c.Paths)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: <input> is required (pass it as the first argument or set input in the config file)")
	}

	if err := module.CheckImportPath(c.ModulePath); err != nil {
		return newUsageError(fmt.Sprintf("generate: invalid --module %q: %v", c.ModulePath, err))
	}
	if c.PackageName != "" && !isPackageName(c.PackageName) {
		return newUsageError(fmt.Sprintf("generate: invalid --package %q (want a lowercase Go identifier)", c.PackageName))
	}

	switch c.PostProcess {
	case PostProcessImports, PostProcessNone:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --post-process %q (allowed: imports, none)", c.PostProcess))
	}

	if c.FixCmd != "" {
		if _, err := postprocess.ParseCommand(c.FixCmd); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid --fix-cmd: %v", err))
		}
	}

	for _, m := range c.Methods {
		if !isSupportedMethod(m) {
			return newUsageError(fmt.Sprintf("generate: unsupported method %q in --methods", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid --paths pattern %q: %v", p, err))
		}
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func isSupportedMethod(m string) bool {
	for _, v := range genspec.Methods {
		if string(v) == m {
			return true
		}
	}
	return false
}

func (c *GenerateConfig) methods() []genspec.HttpMethod {
	out := make([]genspec.HttpMethod, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, genspec.HttpMethod(m))
	}
	return out
}

func isPackageName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != "" && s != "_" && !token.IsKeyword(s)
}

// processor builds the post-processing chain selected by the config.
func (c *GenerateConfig) processor(logger logging.Logger) (postprocess.Processor, error) {
	var chain postprocess.Chain
	if c.PostProcess == PostProcessImports {
		chain = append(chain, postprocess.Imports{Logger: logger})
	}
	if c.FixCmd != "" {
		fix, err := postprocess.ParseCommand(c.FixCmd)
		if err != nil {
			return nil, err
		}
		fix.Logger = logger
		chain = append(chain, fix)
	}
	if len(chain) == 0 {
		return postprocess.None{}, nil
	}
	return chain, nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	stdout, stderr := cfg.stdout, cfg.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logging.New(stderr, cfg.Verbose)

	// 1) Load the spec (file or http/https URL) with validation and conversion
	src, err := genspec.Load(ctx, cfg.Input,
		genspec.WithStrict(cfg.Strict),
		genspec.WithLogger(logger),
	)
	if err != nil {
		// Map structured spec errors into friendly messages
		var se *genspec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return newUsageError(msg)
		}
		return err
	}

	// 2) Build the parsed document with tag filters
	doc, err := genspec.BuildDocument(ctx, src,
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithMethods(cfg.methods()),
		genspec.WithPathPatterns(cfg.Paths),
	)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	// 3) Generate every source in memory
	tree, err := codegen.Generate(ctx, doc,
		codegen.WithModulePath(cfg.ModulePath),
		codegen.WithPackageName(cfg.PackageName),
		codegen.WithLogger(logger),
	)
	if err != nil {
		if errors.Is(err, codegen.ErrNameCollision) || errors.Is(err, codegen.ErrMissingOperationID) {
			return newUsageError(fmt.Sprintf("generate: %v\nHint: rename the schema or operation in the document.", err))
		}
		return fmt.Errorf("generate: %w", err)
	}

	// 4) Write, post-process and swap into place
	pp, err := cfg.processor(logger)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: invalid --fix-cmd: %v", err))
	}
	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	res, err := goemitter.Emit(ctx, tree, goemitter.Options{
		OutDir:        cfg.Out,
		Force:         cfg.Force,
		DryRun:        cfg.DryRun,
		PostProcessor: pp,
		Logger:        logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	printReport(stdout, &tree.Report)
	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(stdout, res.OutDir, paths)
		return nil
	}
	fmt.Fprintf(stdout, "Wrote %d files to %s (module %s)\n", len(paths), res.OutDir, res.ModulePath)
	return nil
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func printReport(w io.Writer, r *codegen.Report) {
	if r.Empty() {
		return
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d operation(s):\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "- %s\n", s.Error())
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings (%d):\n", len(r.Warnings))
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	if errors.Is(err, goemitter.ErrOutputNotEmpty) {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different output directory or use --force.", outDir, err))
	}
	if errors.Is(err, postprocess.ErrFixer) {
		return newUsageError(fmt.Sprintf("post-process failed, %s was left untouched: %v", outDir, err))
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different output directory or use --force when appropriate.", outDir, msg))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	stringFields := map[string]*string{
		"input":       &cfg.Input,
		"out":         &cfg.Out,
		"module":      &cfg.ModulePath,
		"modulepath":  &cfg.ModulePath,
		"package":     &cfg.PackageName,
		"packagename": &cfg.PackageName,
		"postprocess": &cfg.PostProcess,
		"fixcmd":      &cfg.FixCmd,
	}
	boolFields := map[string]*bool{
		"strict":  &cfg.Strict,
		"dryrun":  &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := stringFields[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := boolFields[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		switch normalized {
		case "includetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.IncludeTags = sanitizeTags(list)
		case "excludetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.ExcludeTags = sanitizeTags(list)
		case "methods":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Methods = list
		case "paths":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Paths = list
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
