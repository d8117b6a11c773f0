package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	vsfsck "github.com/vsfs-img/go-vsfsck"
)

func main() {
	app := cli.App{
		Name:      "vsfsck",
		Usage:     "offline consistency checker for vsfs images",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "summary",
				Usage: "write a YAML summary of the run to `PATH`",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run exits non-zero only for usage or I/O errors. An image full of
// inconsistencies still exits zero: the tool reports, it doesn't judge.
func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s [--summary PATH] <image>", ctx.App.Name)
	}
	path := ctx.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	rec := &vsfsck.Recorder{}
	var rep vsfsck.Reporter = &vsfsck.LineReporter{W: os.Stdout}
	summaryPath := ctx.String("summary")
	if summaryPath != "" {
		rep = vsfsck.MultiReporter{rep, rec}
	}

	if err := vsfsck.Check(f, rep); err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if summaryPath != "" {
		out, err := os.Create(summaryPath)
		if err != nil {
			return fmt.Errorf("creating summary file: %w", err)
		}
		if err := vsfsck.WriteSummary(out, rec); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
	return nil
}
