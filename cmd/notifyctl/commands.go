package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"notifyclient/internal/app"
	"notifyclient/internal/config"
	"notifyclient/internal/journal"
	"notifyclient/pkg/notify"
)

var errFailed = errors.New("request failed")

type command struct {
	summary string
	// ownsApp commands close the app themselves.
	ownsApp bool
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"send":       {summary: "submit a notification with a raw JSON payload", run: cmdSend},
	"httpget":    {summary: "submit an HTTP GET callback", run: cmdHTTPGet},
	"httppost":   {summary: "submit an HTTP POST callback", run: cmdHTTPPost},
	"tg":         {summary: "submit a Telegram message", run: cmdTelegram},
	"sendgrid":   {summary: "submit a SendGrid email", run: cmdSendGrid},
	"sms":        {summary: "submit an SMS (always once)", run: cmdSMS},
	"resend":     {summary: "re-dispatch a notification", run: idCommand("resend")},
	"delete":     {summary: "delete a notification", run: idCommand("delete")},
	"result":     {summary: "print the raw result of a notification", run: cmdResult},
	"status":     {summary: "print the status record of a notification", run: queryCommand("status")},
	"detail":     {summary: "print the decoded detail record of a notification", run: queryCommand("detail")},
	"clear":      {summary: "drop finished jobs older than a cutoff", run: clearCommand("clear")},
	"forceclear": {summary: "drop all jobs older than a cutoff, pending included", run: clearCommand("forceClear")},
	"history":    {summary: "list operations recorded in the local journal", run: cmdHistory},
	"janitor":    {summary: "run scheduled clear housekeeping", ownsApp: true, run: cmdJanitor},
}

// submit runs fn, journals it and prints id on success.
func (e *env) submit(ctx context.Context, command, id, driver string, fn func(ctx context.Context, c *notify.Client) bool) error {
	a, err := e.open(nil)
	if err != nil {
		return err
	}
	start := time.Now()
	ok := fn(ctx, a.Client())
	entry := journal.Entry{At: start, Command: command, ID: id, Driver: driver, OK: ok, TookMS: time.Since(start).Milliseconds()}
	if !ok {
		entry.Error = errFailed.Error()
	}
	a.Record(ctx, entry)
	if !ok {
		return errFailed
	}
	fmt.Fprintln(e.stdout, id)
	return nil
}

func sendCommand(once bool) string {
	if once {
		return "sendOnce"
	}
	return "send"
}

func cmdSend(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "send", "-driver TYPE [-id ID] [-endpoint E] [-payload JSON] [-once]")
	id := fs.String("id", "", "notification id (generated when empty)")
	endpoint := fs.String("endpoint", "", "delivery endpoint")
	driver := fs.String("driver", "", "driver tag, e.g. HTTPGET, TGMarkdown, SENDGRID")
	payload := fs.String("payload", "null", "payload as JSON")
	once := fs.Bool("once", false, "dispatch once (sendOnce)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*driver) == "" {
		return errUsage("send: -driver is required")
	}
	if !json.Valid([]byte(*payload)) {
		return errUsage("send: -payload is not valid JSON")
	}
	nid := idOrNew(*id)
	return e.submit(ctx, sendCommand(*once), nid, *driver, func(ctx context.Context, c *notify.Client) bool {
		return c.Send(ctx, nid, *endpoint, *driver, json.RawMessage(*payload), *once)
	})
}

func cmdHTTPGet(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "httpget", "-url URL [-id ID] [-header 'K: V']... [-value k=v]... [-once]")
	id := fs.String("id", "", "notification id (generated when empty)")
	uri := fs.String("url", "", "callback url")
	headers := &pairFlag{sep: ":"}
	values := &pairFlag{sep: "="}
	fs.Var(headers, "header", "request header 'Name: value' (repeatable)")
	fs.Var(values, "value", "query value k=v (repeatable)")
	once := fs.Bool("once", false, "dispatch once (sendOnce)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *uri == "" {
		return errUsage("httpget: -url is required")
	}
	nid := idOrNew(*id)
	return e.submit(ctx, sendCommand(*once), nid, notify.DriverHTTPGet, func(ctx context.Context, c *notify.Client) bool {
		return c.HTTPGet(ctx, nid, *uri, headers.header(), values.values(), *once)
	})
}

func cmdHTTPPost(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "httppost", "-url URL [-id ID] [-header 'K: V']... [-body TEXT] [-once]")
	id := fs.String("id", "", "notification id (generated when empty)")
	uri := fs.String("url", "", "callback url")
	headers := &pairFlag{sep: ":"}
	fs.Var(headers, "header", "request header 'Name: value' (repeatable)")
	body := fs.String("body", "", "request body")
	once := fs.Bool("once", false, "dispatch once (sendOnce)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *uri == "" {
		return errUsage("httppost: -url is required")
	}
	nid := idOrNew(*id)
	return e.submit(ctx, sendCommand(*once), nid, notify.DriverHTTPPost, func(ctx context.Context, c *notify.Client) bool {
		return c.HTTPPost(ctx, nid, *uri, headers.header(), *body, *once)
	})
}

func cmdTelegram(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "tg", "-channel CHAT -text TEXT [-mode markdown|html|plain] [-id ID] [-once]")
	id := fs.String("id", "", "notification id (generated when empty)")
	channel := fs.String("channel", "", "chat id or @channel")
	text := fs.String("text", "", "message text")
	mode := fs.String("mode", "markdown", "markdown, html or plain")
	once := fs.Bool("once", false, "dispatch once (sendOnce)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *channel == "" || *text == "" {
		return errUsage("tg: -channel and -text are required")
	}

	var (
		driver string
		fn     func(c *notify.Client, ctx context.Context, id, channel, text string, once bool) bool
	)
	switch strings.ToLower(*mode) {
	case "markdown", "md":
		driver, fn = notify.DriverTGMarkdown, (*notify.Client).TelegramMarkdown
	case "html":
		driver, fn = notify.DriverTGHTML, (*notify.Client).TelegramHTML
	case "plain", "text":
		driver, fn = notify.DriverTGPlain, (*notify.Client).TelegramPlain
	default:
		return errUsage("tg: unknown -mode %q", *mode)
	}
	nid := idOrNew(*id)
	return e.submit(ctx, sendCommand(*once), nid, driver, func(ctx context.Context, c *notify.Client) bool {
		return fn(c, ctx, nid, *channel, *text, *once)
	})
}

func cmdSendGrid(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "sendgrid", "(-options JSON | -from ADDR -to ADDR -subject S [-text T] [-html H]) [-id ID] [-once]")
	id := fs.String("id", "", "notification id (generated when empty)")
	options := fs.String("options", "", "raw SendGrid v3 mail object as JSON")
	from := fs.String("from", "", "sender address")
	fromName := fs.String("from-name", "", "sender display name")
	to := fs.String("to", "", "recipient address")
	toName := fs.String("to-name", "", "recipient display name")
	subject := fs.String("subject", "", "subject")
	text := fs.String("text", "", "plain text body")
	html := fs.String("html", "", "html body")
	once := fs.Bool("once", false, "dispatch once (sendOnce)")
	if err := parse(fs, args); err != nil {
		return err
	}
	nid := idOrNew(*id)

	if *options != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(*options), &m); err != nil {
			return errUsage("sendgrid: -options: %v", err)
		}
		return e.submit(ctx, sendCommand(*once), nid, notify.DriverSendGrid, func(ctx context.Context, c *notify.Client) bool {
			return c.SendGrid(ctx, nid, m, *once)
		})
	}

	if *from == "" || *to == "" || *subject == "" {
		return errUsage("sendgrid: -from, -to and -subject are required without -options")
	}
	if *text == "" && *html == "" {
		return errUsage("sendgrid: -text or -html is required")
	}
	m := mail.NewSingleEmail(mail.NewEmail(*fromName, *from), *subject, mail.NewEmail(*toName, *to), *text, *html)
	return e.submit(ctx, sendCommand(*once), nid, notify.DriverSendGrid, func(ctx context.Context, c *notify.Client) bool {
		return c.SendGridMail(ctx, nid, m, *once)
	})
}

func cmdSMS(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "sms", "-phone NUMBER -text TEXT [-subject S] [-at RFC3339] [-retry MINUTES] [-id ID]")
	id := fs.String("id", "", "notification id (generated when empty)")
	phone := fs.String("phone", "", "destination phone number")
	text := fs.String("text", "", "message text")
	subject := fs.String("subject", "", "subject")
	at := fs.String("at", "", "scheduled send time (RFC 3339)")
	retry := fs.Int("retry", 0, "gateway retry window in minutes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *phone == "" || *text == "" {
		return errUsage("sms: -phone and -text are required")
	}
	opt := notify.SMSOptions{Subject: *subject, RetryMinutes: *retry}
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return errUsage("sms: -at: %v", err)
		}
		opt.Time = notify.SMSTime(t)
	}
	nid := idOrNew(*id)
	return e.submit(ctx, "sendOnce", nid, notify.DriverSMSAV8D, func(ctx context.Context, c *notify.Client) bool {
		return c.SMSAV8D(ctx, nid, *phone, *text, opt)
	})
}

func idCommand(name string) func(ctx context.Context, e *env, args []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		fs := newFlags(e, name, "ID")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := idArg(fs)
		if err != nil {
			return err
		}
		return e.submit(ctx, name, id, "", func(ctx context.Context, c *notify.Client) bool {
			if name == "delete" {
				return c.Delete(ctx, id)
			}
			return c.Resend(ctx, id)
		})
	}
}

func clearCommand(name string) func(ctx context.Context, e *env, args []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		fs := newFlags(e, strings.ToLower(name), "[-older-than DURATION | -before TIME]")
		olderThan := fs.Duration("older-than", 720*time.Hour, "clear jobs older than this")
		beforeRaw := fs.String("before", "", "explicit cutoff (RFC 3339 or unix seconds)")
		if err := parse(fs, args); err != nil {
			return err
		}
		before := time.Now().Add(-*olderThan)
		if *beforeRaw != "" {
			t, err := parseBefore(*beforeRaw)
			if err != nil {
				return err
			}
			before = t
		}
		// the cutoff stands in for the id in the journal and on stdout
		return e.submit(ctx, name, strconv.FormatInt(before.Unix(), 10), "", func(ctx context.Context, c *notify.Client) bool {
			if name == "forceClear" {
				return c.ForceClear(ctx, before)
			}
			return c.Clear(ctx, before)
		})
	}
}

func cmdResult(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "result", "ID")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := idArg(fs)
	if err != nil {
		return err
	}
	a, err := e.open(nil)
	if err != nil {
		return err
	}
	start := time.Now()
	body, err := a.Client().Result(ctx, id)
	record(ctx, a, "result", id, start, err)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, body)
	return nil
}

func queryCommand(name string) func(ctx context.Context, e *env, args []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		fs := newFlags(e, name, "ID")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := idArg(fs)
		if err != nil {
			return err
		}
		a, err := e.open(nil)
		if err != nil {
			return err
		}

		start := time.Now()
		var rec notify.Record
		if name == "detail" {
			rec, err = a.Client().Detail(ctx, id)
		} else {
			rec, err = a.Client().Status(ctx, id)
		}
		record(ctx, a, name, id, start, err)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(e.stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
}

func record(ctx context.Context, a *app.App, command, id string, start time.Time, err error) {
	entry := journal.Entry{At: start, Command: command, ID: id, OK: err == nil, TookMS: time.Since(start).Milliseconds()}
	if err != nil {
		entry.Error = err.Error()
	}
	a.Record(ctx, entry)
}

func cmdHistory(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "history", "[-n COUNT] [-json]")
	n := fs.Int("n", 20, "number of entries (0 for all)")
	asJSON := fs.Bool("json", false, "print JSON lines")
	if err := parse(fs, args); err != nil {
		return err
	}
	a, err := e.open(nil)
	if err != nil {
		return err
	}
	st := a.Journal()
	if st == nil {
		return fmt.Errorf("history: %w (set journal.driver in the config file)", journal.ErrDisabled)
	}
	entries, err := st.Recent(ctx, *n)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetEscapeHTML(false)
		for _, en := range entries {
			if err := enc.Encode(en); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tCOMMAND\tID\tDRIVER\tOK\tTOOK\tERROR")
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%dms\t%s\n",
			en.At.Local().Format("2006-01-02 15:04:05"), en.Command, en.ID, en.Driver, en.OK, en.TookMS, en.Error)
	}
	return tw.Flush()
}

func cmdJanitor(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "janitor", "[-once] [-schedule S] [-retention D] [-force]")
	once := fs.Bool("once", false, "run a single clear and exit")
	schedule := fs.String("schedule", "", "schedule when running without -config (default @every 1h)")
	retention := fs.String("retention", "", "retention when running without -config (default 720h)")
	force := fs.Bool("force", false, "use forceClear when running without -config")
	if err := parse(fs, args); err != nil {
		return err
	}
	a, err := e.open(func(cfg *config.Config) {
		cfg.Janitor = &config.JanitorConfig{Enabled: true, Schedule: *schedule, Retention: *retention, Force: *force}
	})
	if err != nil {
		return err
	}

	if *once {
		defer a.Close()
		res := a.Janitor().RunOnce(ctx)
		if !res.OK {
			return errFailed
		}
		fmt.Fprintf(e.stdout, "%s %d\n", res.Command, res.Before.Unix())
		return nil
	}

	if !a.Janitor().Enabled() {
		_ = a.Close()
		return errUsage("janitor: janitor.enabled is false in %s", e.cfgPath)
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = a.Stop(stopCtx, reason)
	if runErr := a.Err(); runErr != nil {
		return runErr
	}
	return err
}
