package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"notifyclient/internal/app"
	"notifyclient/internal/config"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// env is what a command sees: parsed global flags and a lazily opened app.
type env struct {
	cfgPath string
	server  string
	stdout  io.Writer
	stderr  io.Writer

	a *app.App
}

// open builds the app. Without -config an in-memory config is used and
// mutate (if any) may fill it in.
func (e *env) open(mutate func(*config.Config)) (*app.App, error) {
	if e.a != nil {
		return e.a, nil
	}
	var opts []app.Option
	if e.server != "" {
		opts = append(opts, app.WithServer(e.server))
	}

	var (
		a   *app.App
		err error
	)
	if e.cfgPath != "" {
		a, err = app.New(e.cfgPath, opts...)
	} else {
		if e.server == "" {
			return nil, errUsage("either -config or -server is required")
		}
		cfg := &config.Config{Logging: config.LoggingConfig{Level: "warn", Console: true}}
		if mutate != nil {
			mutate(cfg)
		}
		a, err = app.NewFromConfig(cfg, opts...)
	}
	if err != nil {
		return nil, err
	}
	e.a = a
	return a, nil
}

type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

func errUsage(format string, args ...any) error { return usageError{fmt.Sprintf(format, args...)} }

// exitCode maps an error returned by a command to the process exit code.
func (e *env) exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		if ue.msg != "" {
			fmt.Fprintln(e.stderr, "usage error:", ue.msg)
		}
		return exitUsage
	}
	fmt.Fprintln(e.stderr, "error:", err)
	return exitFail
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("notifyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	e := &env{stdout: stdout, stderr: stderr}
	fs.StringVar(&e.cfgPath, "config", "", "path to config file (json or yaml)")
	fs.StringVar(&e.server, "server", "", "notification server base url (overrides server.base_url)")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(fs)
		return exitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(fs)
		return exitUsage
	}

	code := e.exitCode(cmd.run(ctx, e, rest[1:]))
	if e.a != nil && !cmd.ownsApp {
		_ = e.a.Close()
	}
	return code
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: notifyctl [-config path] [-server url] <command> [flags]")
	fmt.Fprintln(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-11s %s\n", n, commands[n].summary)
	}
	fmt.Fprintln(w, strings.TrimSpace(`
exit status: 0 ok, 1 operation failed, 2 usage error`))
}
