package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// pairFlag collects repeated "key<sep>value" flags.
type pairFlag struct {
	sep   string
	pairs [][2]string
}

func (f *pairFlag) String() string {
	parts := make([]string, 0, len(f.pairs))
	for _, p := range f.pairs {
		parts = append(parts, p[0]+f.sep+p[1])
	}
	return strings.Join(parts, ",")
}

func (f *pairFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, f.sep)
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("want key%svalue, got %q", f.sep, v)
	}
	f.pairs = append(f.pairs, [2]string{k, strings.TrimSpace(val)})
	return nil
}

func (f *pairFlag) header() http.Header {
	h := http.Header{}
	for _, p := range f.pairs {
		h.Add(p[0], p[1])
	}
	return h
}

func (f *pairFlag) values() url.Values {
	v := url.Values{}
	for _, p := range f.pairs {
		v.Add(p[0], p[1])
	}
	return v
}

func newFlags(e *env, name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: notifyctl %s %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args; flag has already reported any error.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{}
	}
	return nil
}

// idArg returns the single positional notification id.
func idArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", errUsage("%s: exactly one notification id required", fs.Name())
	}
	return fs.Arg(0), nil
}

func idOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

// parseBefore accepts RFC 3339 or unix seconds.
func parseBefore(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Time{}, errUsage("invalid -before %q (use RFC 3339 or unix seconds)", v)
}
