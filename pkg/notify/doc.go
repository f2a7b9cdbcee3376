// Package notify is a client for the notification-dispatch API server.
//
// Every operation is a single synchronous JSON POST to
// "<base address>/<command>":
//
//	c := notify.New("http://127.0.0.1:8080")
//	ok := c.HTTPPost(ctx, "order-42", "https://example.com/hook", nil, `{"paid":true}`, false)
//
// # Results
//
// Fire-and-forget operations (Send and the driver helpers, Resend, Delete,
// Clear, ForceClear) report only success or failure as a bool. The cause of a
// failure is logged through the configured logx.Logger and otherwise dropped.
//
// Query operations (Result, Status, Detail) return the data together with an
// error: *TransportError when the server cannot be reached, *DecodeError when
// the response is not what the command promises.
//
// # Drivers
//
// The driver tag selects the delivery backend on the server side. Helpers
// exist for the built-in backends (HTTPGET, HTTPPOST, TGMarkdown, TGHTML,
// TGPlain, SENDGRID, SMSAV8D); Send accepts any tag and payload for third
// party drivers.
//
// # Once semantics
//
// once=true dispatches through "sendOnce", telling the server not to resend
// on failure. SMSAV8D is always sent once because the SMS gateway resends by
// itself.
package notify
