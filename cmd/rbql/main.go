// Copyright (c) RBQL contributors.

// Command rbql is the CLI collaborator from, structured
// the way sqldef's cmd/*def binaries declare their options (a single
// go-flags struct parsed once in main) and colorize error output the
// same way those binaries auto-detect a terminal with golang.org/x/term.
package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"golang.org/x/term"

	rbql "github.com/rbql-lang/rbql-go"
	"github.com/rbql-lang/rbql-go/iterators/csvtable"
	"github.com/rbql-lang/rbql-go/iterators/memtable"
	"github.com/rbql-lang/rbql-go/iterators/sqlitetable"
)

var version = "dev"

type cliOptions struct {
	Query         string `long:"query" description:"RBQL query text" required:"true"`
	Input         string `long:"input" description:"Input file path, or - for stdin" default:"-"`
	Output        string `long:"output" description:"Output file path, or - for stdout" default:"-"`
	Delim         string `long:"delim" description:"Field delimiter" default:"\t"`
	Policy        string `long:"policy" description:"simple|quoted|quoted_rfc|whitespace|monocolumn" default:"simple"`
	OutFormat     string `long:"out-format" description:"Output policy, defaults to --policy" default:""`
	Encoding      string `long:"encoding" description:"utf-8|latin-1" default:"utf-8"`
	WithHeaders   bool   `long:"with-headers" description:"Treat the first input row as a header"`
	CommentPrefix string `long:"comment-prefix" description:"Accepted but not applied: input lines are not skipped"`
	Color         bool   `long:"color" description:"Force colorized error output"`
	SQLite        string `long:"sqlite" description:"SQLite database file whose tables FROM/JOIN can name"`
	Version       bool   `long:"version" description:"Show version and exit"`
}

func main() {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "--query \"select ...\" [option...]"
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(opts); err != nil {
		printError(opts, err)
		os.Exit(1)
	}
}

func run(opts cliOptions) error {
	in, err := openInput(opts)
	if err != nil {
		return err
	}

	outFile, closeOut, err := openOutput(opts.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	outPolicy := csvtable.Policy(opts.OutFormat)
	if outPolicy == "" {
		outPolicy = csvtable.Policy(opts.Policy)
	}
	writer := csvtable.NewWriter(outFile, opts.Delim, outPolicy)

	var registry rbql.TableRegistry
	if opts.SQLite != "" {
		reg, err := sqlitetable.Open(opts.SQLite)
		if err != nil {
			return err
		}
		registry = reg
	} else {
		registry = memtable.NewRegistry(nil)
	}

	queryOpts := []rbql.Option{}
	if opts.WithHeaders {
		if err := in.HandleQueryModifier("header"); err != nil {
			return err
		}
	}

	_, err = rbql.Query(opts.Query, in, nil, writer, registry, queryOpts...)
	if err != nil {
		return err
	}

	for _, w := range append(in.Warnings(), writer.Warnings()...) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return writer.Finish()
}

func openInput(opts cliOptions) (*csvtable.Iterator, error) {
	var f *os.File
	if opts.Input == "-" || opts.Input == "" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(opts.Input)
		if err != nil {
			return nil, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
		}
	}
	return csvtable.NewIterator(f, opts.Delim, csvtable.Policy(opts.Policy), csvtable.Encoding(opts.Encoding))
}

func openOutput(path string) (*os.File, func() error, error) {
	if path == "-" || path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	return f, f.Close, nil
}

// printError prefixes the message with the error's taxonomy kind
// ("Error [<kind>]: ..."), colorizing it red when writing to a real
// terminal or when --color was forced.
func printError(opts cliOptions, err error) {
	kind := errorKind(err)
	msg := fmt.Sprintf("Error [%s]: %v", kind, err)
	if opts.Color || term.IsTerminal(int(os.Stderr.Fd())) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, rbql.ErrParsing):
		return "parsing"
	case errors.Is(err, rbql.ErrIOHandling):
		return "io"
	case errors.Is(err, rbql.ErrRuntime):
		return "runtime"
	case errors.Is(err, rbql.ErrSyntax):
		return "syntax"
	default:
		return "unexpected"
	}
}
