// Lox CLI - runs Lox scripts, the REPL and the language server
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/interpreter"
	"github.com/chazu/treelox/manifest"
	"github.com/chazu/treelox/server"
	"github.com/chazu/treelox/session"

	_ "github.com/tliron/commonlog/simple"
)

// exitUsage and exitNoInput follow sysexits.h like the session codes.
const (
	exitUsage   = 64
	exitNoInput = 66
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	interactive bool
	lsp         bool
	ast         bool
	hash        bool
	verbose     bool
	dir         string
	file        string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("lox", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.BoolVar(&opts.interactive, "i", false, "Start the REPL (after running the script, if any)")
	fs.BoolVar(&opts.lsp, "lsp", false, "Start the language server on stdio")
	fs.BoolVar(&opts.ast, "ast", false, "Print the parsed program instead of running it")
	fs.BoolVar(&opts.hash, "hash", false, "Print the program content hash instead of running it")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.StringVar(&opts.dir, "C", ".", "Directory to search for lox.toml")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lox [options] [script]\n\n")
		fmt.Fprintf(stderr, "Runs a Lox script, or starts the REPL when no script is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lox                   # Start REPL\n")
		fmt.Fprintf(stderr, "  lox hello.lox         # Run a script\n")
		fmt.Fprintf(stderr, "  lox -i prelude.lox    # Run a script, then start the REPL\n")
		fmt.Fprintf(stderr, "  lox -ast hello.lox    # Print the parsed program\n")
		fmt.Fprintf(stderr, "  lox -lsp              # Serve LSP on stdio\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected at most one script, got %d", fs.NArg())
	}
	opts.file = fs.Arg(0)
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err == flag.ErrHelp {
		return session.ExitOK
	}
	if err != nil {
		return exitUsage
	}

	m, err := manifest.FindAndLoad(opts.dir)
	if err != nil {
		fmt.Fprintf(stderr, "lox: %v\n", err)
		return exitUsage
	}
	if m == nil {
		m = manifest.Default()
	}

	configureLogging(m, opts.verbose)
	log := commonlog.GetLogger("lox.cli")
	if m.Dir != "" {
		log.Infof("using manifest %s (project %q)", m.Dir, m.Project.Name)
	}

	if opts.lsp {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "lox: language server: %v\n", err)
			return 1
		}
		return session.ExitOK
	}

	file := opts.file
	if file == "" && !opts.interactive {
		file = m.EntryPath()
	}

	if opts.ast || opts.hash {
		if file == "" {
			fmt.Fprintf(stderr, "lox: -ast and -hash need a script\n")
			return exitUsage
		}
		return dump(file, opts, stdout, stderr)
	}

	rep := compiler.ReporterFunc(func(d compiler.Diagnostic) {
		fmt.Fprintln(stderr, session.Format(d))
	})
	sess := session.New(
		session.WithName(m.Project.Name),
		session.WithEcho(m.EchoEnabled()),
		session.WithOutput(interpreter.WriterPrinter{W: stdout}),
	)

	for _, path := range m.PreludePaths() {
		log.Debugf("running prelude %s", path)
		if code := runFile(sess, path, rep, stderr); code != session.ExitOK {
			return code
		}
	}

	if file != "" {
		log.Debugf("running %s", file)
		code := runFile(sess, file, rep, stderr)
		if !opts.interactive || code != session.ExitOK {
			return code
		}
	}

	return runREPL(sess, m, stdin, stdout, stderr, rep)
}

// configureLogging sets up commonlog from the manifest and the -v flag.
func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity := m.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	var path *string
	if m.Log.File != "" {
		p := m.Log.File
		path = &p
	}
	commonlog.Configure(verbosity, path)
}

// runFile runs a script in sess and returns the exit status.
func runFile(sess *session.Session, path string, rep compiler.Reporter, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "lox: %v\n", err)
		return exitNoInput
	}
	err = sess.Run(string(src), rep)
	code := session.ExitCode(err)
	if code == session.ExitIO {
		fmt.Fprintf(stderr, "lox: %v\n", err)
	}
	return code
}

// dump prints the parsed program or its content hash.
func dump(path string, opts *options, stdout, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "lox: %v\n", err)
		return exitNoInput
	}

	a, err := session.Analyze(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "lox: hash %s: %v\n", path, err)
		return 1
	}
	for _, d := range a.Diagnostics {
		fmt.Fprintln(stderr, session.Format(d))
	}
	if !a.OK() {
		return session.ExitStatic
	}

	if opts.ast {
		fmt.Fprint(stdout, compiler.PrintProgram(a.Program))
	}
	if opts.hash {
		fmt.Fprintln(stdout, a.Hash)
	}
	return session.ExitOK
}
