package notify

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Driver tags understood by the stock server.
const (
	DriverHTTPGet    = "HTTPGET"
	DriverHTTPPost   = "HTTPPOST"
	DriverTGMarkdown = "TGMarkdown"
	DriverTGHTML     = "TGHTML"
	DriverTGPlain    = "TGPlain"
	DriverSendGrid   = "SENDGRID"
	DriverSMSAV8D    = "SMSAV8D"
)

// API commands, appended to the base address.
const (
	cmdSend       = "send"
	cmdSendOnce   = "sendOnce"
	cmdResend     = "resend"
	cmdResult     = "result"
	cmdStatus     = "status"
	cmdDetail     = "detail"
	cmdDelete     = "delete"
	cmdClear      = "clear"
	cmdForceClear = "forceClear"
)

// Params is the body of send and sendOnce.
type Params struct {
	// ID must be unique; the server uses it as primary key.
	ID       string `json:"id"`
	Driver   string `json:"type"`
	Endpoint string `json:"endpoint"`
	Payload  any    `json:"payload"`
}

type idParams struct {
	ID string `json:"id"`
}

type clearParams struct {
	Before int64 `json:"before"`
}

// GetMsg is the HTTPGET payload. Both keys are always sent; an empty
// collection is sent as null.
//
// Headers and values are multi-valued on the wire, the way the server decodes
// them: {"headers":{"X-Token":["abc"]},"values":{"q":["a","b"]}}.
type GetMsg struct {
	Headers http.Header `json:"headers"`
	Values  url.Values  `json:"values"`
}

// PostMsg is the HTTPPOST payload. The headers key is left out when empty.
type PostMsg struct {
	Body    string      `json:"body"`
	Headers http.Header `json:"headers,omitempty"`
}

// SMSMsg is the SMSAV8D payload.
type SMSMsg struct {
	Content string `json:"content"`
	Subject string `json:"subject"`
	Time    string `json:"time"`
	Retry   int    `json:"retry"`
}

// SMSOptions holds the optional SMSAV8D fields.
type SMSOptions struct {
	Subject string
	// Time schedules delivery, in YmdHis form. See SMSTime.
	Time string
	// RetryMinutes is how long the gateway keeps trying.
	RetryMinutes int
}

// SMSTime formats t the way the SMS gateway expects scheduled times.
func SMSTime(t time.Time) string {
	return t.Format("20060102150405")
}

// State is the processing state of a notification as reported by /status.
type State int

const (
	Pending State = iota
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Record is a status or detail response. The schema belongs to the server;
// accessors return zero values for missing or mistyped fields.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (r Record) State() State        { return State(r.Int64("state")) }
func (r Record) Tried() int64        { return r.Int64("tried") }
func (r Record) CreateAt() time.Time { return time.Unix(r.Int64("create_at"), 0) }
func (r Record) NextAt() time.Time   { return time.Unix(r.Int64("next_at"), 0) }
func (r Record) Driver() string      { return r.String("type") }
func (r Record) Endpoint() string    { return r.String("endpoint") }
func (r Record) Content() string     { return r.String("content") }
func (r Record) Response() string    { return r.String("response") }
