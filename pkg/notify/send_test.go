package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestSendEnvelope(t *testing.T) {
	tests := []struct {
		name string
		once bool
		path string
	}{
		{name: "retry", once: false, path: "/send"},
		{name: "once", once: true, path: "/sendOnce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := capture(t, http.StatusOK, "")
			c := New(srv.URL)

			payload := map[string]any{"k": "v"}
			if !c.Send(context.Background(), "id-1", "ep", "CUSTOM", payload, tt.once) {
				t.Fatal("Send returned false")
			}

			got := reqs()
			if len(got) != 1 {
				t.Fatalf("expected exactly one request, got %d", len(got))
			}
			if got[0].Path != tt.path {
				t.Fatalf("path = %s, want %s", got[0].Path, tt.path)
			}
			want := map[string]any{
				"id":       "id-1",
				"type":     "CUSTOM",
				"endpoint": "ep",
				"payload":  map[string]any{"k": "v"},
			}
			if body := decodeBody(t, got[0].Body); !reflect.DeepEqual(body, want) {
				t.Fatalf("body = %#v, want %#v", body, want)
			}
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	c := New(deadAddress(t))
	if c.Send(context.Background(), "id", "ep", DriverHTTPGet, nil, false) {
		t.Fatal("Send should return false when the server is unreachable")
	}
}

func TestHTTPGetPayload(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		values  url.Values
		want    map[string]any
	}{
		{
			name: "nil collections",
			want: map[string]any{"headers": nil, "values": nil},
		},
		{
			name:    "empty collections",
			headers: http.Header{},
			values:  url.Values{},
			want:    map[string]any{"headers": nil, "values": nil},
		},
		{
			name:    "headers only",
			headers: http.Header{"A": {"B"}},
			values:  url.Values{},
			want:    map[string]any{"headers": map[string]any{"A": []any{"B"}}, "values": nil},
		},
		{
			name:   "values only",
			values: url.Values{"q": {"1", "2"}},
			want:   map[string]any{"headers": nil, "values": map[string]any{"q": []any{"1", "2"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := capture(t, http.StatusOK, "")
			c := New(srv.URL)
			if !c.HTTPGet(context.Background(), "g", "https://example.com/cb", tt.headers, tt.values, false) {
				t.Fatal("HTTPGet returned false")
			}
			body := decodeBody(t, reqs()[0].Body)
			if body["type"] != DriverHTTPGet || body["endpoint"] != "https://example.com/cb" {
				t.Fatalf("unexpected envelope: %#v", body)
			}
			payload, ok := body["payload"].(map[string]any)
			if !ok {
				t.Fatalf("payload is not an object: %#v", body["payload"])
			}
			if !reflect.DeepEqual(payload, tt.want) {
				t.Fatalf("payload = %#v, want %#v", payload, tt.want)
			}
		})
	}
}

func TestHTTPPostOmitsEmptyHeaders(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "")
	c := New(srv.URL)

	if !c.HTTPPost(context.Background(), "p1", "https://example.com/hook", http.Header{}, "hello", true) {
		t.Fatal("HTTPPost returned false")
	}
	if !c.HTTPPost(context.Background(), "p2", "https://example.com/hook", http.Header{"X-Token": {"t"}}, "hi", false) {
		t.Fatal("HTTPPost returned false")
	}

	got := reqs()
	if got[0].Path != "/sendOnce" || got[1].Path != "/send" {
		t.Fatalf("paths = %s, %s", got[0].Path, got[1].Path)
	}

	var first struct {
		Payload map[string]json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(got[0].Body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := first.Payload["headers"]; ok {
		t.Fatalf("headers key must be absent, payload: %s", got[0].Body)
	}
	if string(first.Payload["body"]) != `"hello"` {
		t.Fatalf("body = %s", first.Payload["body"])
	}

	second := decodeBody(t, got[1].Body)["payload"].(map[string]any)
	want := map[string]any{"body": "hi", "headers": map[string]any{"X-Token": []any{"t"}}}
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("payload = %#v, want %#v", second, want)
	}
}

func TestTelegramDrivers(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "")
	c := New(srv.URL)
	ctx := context.Background()

	c.TelegramMarkdown(ctx, "t1", "ops", "*bold*", false)
	c.TelegramHTML(ctx, "t2", "ops", "<b>bold</b>", true)
	c.TelegramPlain(ctx, "t3", "ops", "bold", false)

	wantDrivers := []string{DriverTGMarkdown, DriverTGHTML, DriverTGPlain}
	wantText := []string{"*bold*", "<b>bold</b>", "bold"}
	for i, r := range reqs() {
		body := decodeBody(t, r.Body)
		if body["type"] != wantDrivers[i] {
			t.Errorf("request %d type = %v, want %s", i, body["type"], wantDrivers[i])
		}
		if body["endpoint"] != "ops" {
			t.Errorf("request %d endpoint = %v", i, body["endpoint"])
		}
		if body["payload"] != wantText[i] {
			t.Errorf("request %d payload = %#v, want raw string %q", i, body["payload"], wantText[i])
		}
	}
}

func TestSendGridVariantsMatch(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "")
	c := New(srv.URL)
	ctx := context.Background()

	m := mail.NewSingleEmail(
		mail.NewEmail("Ops", "ops@example.com"),
		"Disk almost full",
		mail.NewEmail("", "oncall@example.com"),
		"92% used",
		"",
	)
	if !c.SendGridMail(ctx, "sg1", m, false) {
		t.Fatal("SendGridMail returned false")
	}

	// same message as a generic options map
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var opts map[string]any
	if err := json.Unmarshal(raw, &opts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.SendGrid(ctx, "sg1", opts, false) {
		t.Fatal("SendGrid returned false")
	}

	got := reqs()
	typed, generic := decodeBody(t, got[0].Body), decodeBody(t, got[1].Body)
	if !reflect.DeepEqual(typed, generic) {
		t.Fatalf("wire shapes differ:\n typed=%#v\n generic=%#v", typed, generic)
	}
	if typed["endpoint"] != "" || typed["type"] != DriverSendGrid {
		t.Fatalf("unexpected envelope: %#v", typed)
	}
}

func TestSMSAV8DAlwaysOnce(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "")
	c := New(srv.URL)

	ok := c.SMSAV8D(context.Background(), "s1", "+886987654321,0987654321", "code 1234", SMSOptions{
		Subject:      "login",
		Time:         "20260102030405",
		RetryMinutes: 30,
	})
	if !ok {
		t.Fatal("SMSAV8D returned false")
	}

	got := reqs()
	if got[0].Path != "/sendOnce" {
		t.Fatalf("SMSAV8D must use sendOnce, got %s", got[0].Path)
	}
	body := decodeBody(t, got[0].Body)
	want := map[string]any{
		"content": "code 1234",
		"subject": "login",
		"time":    "20260102030405",
		"retry":   float64(30),
	}
	if !reflect.DeepEqual(body["payload"], want) {
		t.Fatalf("payload = %#v, want %#v", body["payload"], want)
	}
	if body["endpoint"] != "+886987654321,0987654321" || body["type"] != DriverSMSAV8D {
		t.Fatalf("unexpected envelope: %#v", body)
	}
}

func TestSMSAV8DDefaults(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "")
	New(srv.URL).SMSAV8D(context.Background(), "s2", "0987654321", "hi", SMSOptions{})

	body := decodeBody(t, reqs()[0].Body)
	want := map[string]any{"content": "hi", "subject": "", "time": "", "retry": float64(0)}
	if !reflect.DeepEqual(body["payload"], want) {
		t.Fatalf("payload = %#v, want %#v", body["payload"], want)
	}
}
