// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli"

	"retcheck/grammar"
	"retcheck/internal/analysis"
	"retcheck/internal/cfg"
	"retcheck/internal/config"
	"retcheck/internal/frontend"
	"retcheck/internal/report"
	"retcheck/repl"
)

var version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("%s", err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "retcheck"
	app.Usage = "report low-level call results that are never checked"
	app.ArgsUsage = "<listing>..."
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "configuration file (default: ./" + config.FileName + " if present)"},
		cli.StringFlag{Name: "format, f", Usage: "output format: text or json"},
		cli.StringFlag{Name: "severity, s", Usage: "lowest severity to report: low, medium or high"},
		cli.IntFlag{Name: "workers, j", Usage: "functions analyzed in parallel (0 uses GOMAXPROCS)"},
		cli.DurationFlag{Name: "timeout", Usage: "stop scheduling functions after this long"},
		cli.IntFlag{Name: "max-check-depth", Usage: "boolean links allowed between a call and its check"},
		cli.BoolFlag{Name: "strict-join", Usage: "a flag checked on only some incoming paths stays unchecked"},
		cli.BoolFlag{Name: "exit-is-effect", Usage: "report flags that are still unchecked at a normal exit"},
		cli.BoolFlag{Name: "logs-are-effects", Usage: "treat event emission as a state mutation"},
		cli.BoolFlag{Name: "dump", Usage: "print the lowered control flow graphs instead of analyzing"},
		cli.BoolFlag{Name: "print-listing", Usage: "print the listings in canonical form instead of analyzing"},
		cli.BoolFlag{Name: "interactive, i", Usage: "read listings from standard input at a prompt"},
		cli.IntFlag{Name: "verbose", Usage: "log verbosity (0 is quiet)"},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	commonlog.Configure(c.Int("verbose"), nil)

	interactive := c.Bool("interactive")
	if c.NArg() == 0 && !interactive {
		_ = cli.ShowAppHelp(c)
		return cli.NewExitError("", 2)
	}

	conf, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 2)
	}

	if c.Bool("dump") {
		return dump(c.App.Writer, c.Args())
	}
	if c.Bool("print-listing") {
		return printListings(c.App.Writer, c.Args())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := analysis.BatchOptions{Workers: conf.Workers, Policy: conf.AnalysisPolicy()}
	if interactive {
		fmt.Fprintln(c.App.Writer, "retcheck "+version+": enter listing functions, end with EOF")
		if err := repl.Start(ctx, os.Stdin, c.App.Writer, opts, conf.Threshold()); err != nil {
			return cli.NewExitError(err, 2)
		}
		return nil
	}

	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	files, err := report.AnalyzeFiles(ctx, c.Args(), opts)
	if err != nil {
		color.Yellow("analysis interrupted: %s", err)
	}

	threshold := conf.Threshold()
	if conf.Format == "json" {
		err = report.JSON(c.App.Writer, files, threshold)
	} else {
		err = report.Text(c.App.Writer, files, threshold)
	}
	if err != nil {
		return cli.NewExitError(err, 2)
	}

	summary := report.Summarize(files, threshold)
	duration := formatDuration(time.Since(startTime))
	if summary.Failed() {
		if conf.Format == "text" {
			color.Red("Analysis of %d file(s) failed after %s", summary.Files, duration)
		}
		return cli.NewExitError("", 1)
	}
	if conf.Format == "text" {
		color.Green("Successfully analyzed %d file(s) in %s", summary.Files, duration)
	}
	return nil
}

// loadConfig reads the configuration file and applies command-line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("format") {
		conf.Format = c.String("format")
	}
	if c.IsSet("severity") {
		conf.Severity = c.String("severity")
	}
	if c.IsSet("workers") {
		conf.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		conf.Timeout = c.Duration("timeout")
	}
	if c.IsSet("max-check-depth") {
		conf.Policy.MaxCheckDepth = c.Int("max-check-depth")
	}
	if c.Bool("strict-join") {
		conf.Policy.StrictJoin = true
	}
	if c.Bool("exit-is-effect") {
		conf.Policy.ExitIsEffect = true
	}
	if c.Bool("logs-are-effects") {
		conf.Policy.LogsAreEffects = true
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// dump prints every lowered graph, or the syntax error of a listing
func dump(w io.Writer, paths []string) error {
	failed := false
	for _, path := range paths {
		source, funcs, err := frontend.Load(path)
		if err != nil {
			failed = true
			// the file was read, so this is a syntax error
			if source != "" {
				grammar.ReportParseError(os.Stderr, source, err)
			} else {
				color.Red("%s: %s", path, err)
			}
			continue
		}
		for _, fn := range funcs {
			if fn.Err != nil {
				failed = true
				color.Red("%s: function %s: %s", path, fn.Name, fn.Err)
				continue
			}
			fmt.Fprint(w, cfg.Print(fn.Graph))
		}
	}
	if failed {
		return cli.NewExitError("", 1)
	}
	return nil
}

// printListings parses each listing and prints it back in canonical form
func printListings(w io.Writer, paths []string) error {
	failed := false
	for _, path := range paths {
		file, source, err := grammar.ParseFile(path)
		if err != nil {
			failed = true
			if source != "" {
				grammar.ReportParseError(os.Stderr, source, err)
			} else {
				color.Red("%s: %s", path, err)
			}
			continue
		}
		fmt.Fprint(w, grammar.Print(file))
	}
	if failed {
		return cli.NewExitError("", 1)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
