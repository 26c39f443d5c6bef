package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/ison-lang/ison/pkg/ioctx"
	"github.com/ison-lang/ison/pkg/ison"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// cliConfig holds the flags of §6's CLI collaborator.
type cliConfig struct {
	Debug      bool
	Indent     int
	ResultKey  string
	StripVars  bool
	Args       []string
	ServeDebug bool
}

func main() {
	var cfg cliConfig

	rootCmd := &cobra.Command{
		Use:   "ison [flags] filename_in filename_out",
		Short: "ISON document evaluator",
		Long: `ison evaluates $name / ${path} / $func{args} expressions embedded in a
JSON-like document tree and writes the resolved result.`,
		Example: `  # Evaluate a document, writing the result to stdout
  ison doc.ison -

  # Evaluate stdin, writing only one result key
  cat doc.json | ison - - -r output

  # Inject caller variables
  ison -a env=prod -a replicas=3 doc.ison out.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), cfg, args[0], args[1])
		},
	}

	rootCmd.Flags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().IntVarP(&cfg.Indent, "indent-output", "i", 4, "JSON indent on output")
	rootCmd.Flags().StringVarP(&cfg.ResultKey, "result-key", "r", "", "Return only result[K]")
	rootCmd.Flags().BoolVar(&cfg.StripVars, "strip-vars", false, "Remove every reserved-key variable block from the output")
	rootCmd.Flags().StringArrayVarP(&cfg.Args, "args", "a", nil, "Inject key=value pairs into run.kwargs (value '-' reads from stdin)")

	rootCmd.AddCommand(serveCmd())

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
			if cfg.Debug {
				_, _ = fmt.Fprintf(w, "%s %+v\n", errStyle.Render("error:"), err)
			} else {
				_, _ = fmt.Fprintf(w, "%s %s\n", errStyle.Render("error:"), errors.Cause(err))
			}
		}),
	); err != nil {
		os.Exit(1)
	}
}

func runProcess(ctx context.Context, cfg cliConfig, in, out string) error {
	logger := setupLogging(ioctx.StderrFromContext(ctx), cfg.Debug)

	if in == "-" {
		for _, a := range cfg.Args {
			if _, v, ok := strings.Cut(a, "="); ok && v == "-" {
				return fmt.Errorf("--args value '-' cannot be combined with reading the input from stdin")
			}
		}
	}

	raw, err := readInput(in)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	doc, err := ison.DecodeJSON5(raw)
	if err != nil {
		return errors.Wrap(err, "parsing input")
	}

	baseDir := filepath.Dir(in)
	if in == "-" {
		baseDir = "."
	}
	_, projCfg, err := FindProjectConfig(baseDir)
	if err != nil {
		return errors.Wrap(err, "reading ison.toml")
	}

	kwargs, err := parseArgs(cfg.Args)
	if err != nil {
		return errors.Wrap(err, "parsing --args")
	}
	if projCfg != nil {
		for k, v := range projCfg.Args {
			if _, ok := kwargs.Get(k); !ok {
				kwargs.Set(k, ison.String(v))
			}
		}
	}

	constVars := ison.NewOMap()
	cwd, _ := os.Getwd()
	constVars.Set("run.cwd", ison.String(cwd))
	argVals := make([]ison.Value, len(cfg.Args))
	for i, a := range cfg.Args {
		argVals[i] = ison.String(a)
	}
	constVars.Set("run.args", ison.ListOf(argVals))
	constVars.Set("run.kwargs", ison.MapOf(kwargs))
	if in != "-" {
		constVars.Set("run.file", fileConstVars(raw, in))
	}

	loader := ison.FileLoader{BaseDir: baseDir}
	var hostAliases map[string][]string
	if projCfg != nil {
		loader.SearchPath = projCfg.IncludePath
		hostAliases = projCfg.HostAliases
	}
	proc := ison.NewProcessor(loader)
	proc.HostAliases = hostAliases

	result, err := proc.Process(doc, ison.ProcessOptions{
		ConstVars: constVars,
		StripVars: cfg.StripVars,
	})
	if err != nil {
		return errors.Wrap(err, "processing document")
	}

	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	if !proc.FullyProcessed {
		logger.WarnContext(ctx, warnStyle.Render("document was not fully processed"), "warnings", len(proc.Warnings.Items()))
	}
	for _, w := range proc.Warnings.Items() {
		logger.WarnContext(ctx, warnStyle.Render("undefined variable"), "name", w.Name, "chain", strings.Join(w.Chain, "."))
	}

	if cfg.ResultKey != "" {
		if result.Kind() != ison.KindMap {
			return fmt.Errorf("--result-key requires the result to be a map")
		}
		v, ok := result.Map().Get(cfg.ResultKey)
		if !ok {
			return fmt.Errorf("result has no key %q", cfg.ResultKey)
		}
		result = v
	}

	return writeOutput(ctx, out, ison.ToString(result, cfg.Indent))
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func writeOutput(ctx context.Context, path, content string) error {
	if path == "-" {
		_, err := fmt.Fprintln(ioctx.StdoutFromContext(ctx), content)
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o644)
}

func parseArgs(args []string) (*ison.OMap, error) {
	out := ison.NewOMap()
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --args entry %q, expected key=value", a)
		}
		if v == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, err
			}
			v = string(data)
		}
		out.Set(k, ison.String(v))
	}
	return out, nil
}

func fileConstVars(source, path string) ison.Value {
	abs, _ := filepath.Abs(path)
	m := ison.NewOMap()
	m.Set("source", ison.String(source))
	m.Set("path", ison.String(abs))
	m.Set("dir", ison.String(filepath.Dir(abs)))
	m.Set("folder", ison.String(filepath.Base(filepath.Dir(abs))))
	m.Set("ext", ison.String(filepath.Ext(abs)))
	name := filepath.Base(abs)
	m.Set("name", ison.String(name))
	m.Set("basename", ison.String(strings.TrimSuffix(name, filepath.Ext(name))))
	return ison.MapOf(m)
}
