package notify

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestManageCommands(t *testing.T) {
	before := time.Unix(1700000000, 0)
	tests := []struct {
		name string
		run  func(c *Client) bool
		path string
		want map[string]any
	}{
		{
			name: "resend",
			run:  func(c *Client) bool { return c.Resend(context.Background(), "r1") },
			path: "/resend",
			want: map[string]any{"id": "r1"},
		},
		{
			name: "delete",
			run:  func(c *Client) bool { return c.Delete(context.Background(), "d1") },
			path: "/delete",
			want: map[string]any{"id": "d1"},
		},
		{
			name: "clear",
			run:  func(c *Client) bool { return c.Clear(context.Background(), before) },
			path: "/clear",
			want: map[string]any{"before": float64(1700000000)},
		},
		{
			name: "forceClear",
			run:  func(c *Client) bool { return c.ForceClear(context.Background(), before) },
			path: "/forceClear",
			want: map[string]any{"before": float64(1700000000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := capture(t, http.StatusNotFound, "")
			if !tt.run(New(srv.URL)) {
				t.Fatal("expected true: HTTP status is not a transport failure")
			}
			got := reqs()
			if len(got) != 1 || got[0].Path != tt.path {
				t.Fatalf("requests = %+v", got)
			}
			if body := decodeBody(t, got[0].Body); !reflect.DeepEqual(body, tt.want) {
				t.Fatalf("body = %#v, want %#v", body, tt.want)
			}
		})

		t.Run(tt.name+" unreachable", func(t *testing.T) {
			if tt.run(New(deadAddress(t))) {
				t.Fatal("expected false when the server is unreachable")
			}
		})
	}
}

func TestResultRaw(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, "aGVsbG8=")
	got, err := New(srv.URL).Result(context.Background(), "x")
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got != "aGVsbG8=" {
		t.Fatalf("Result = %q, want it undecoded", got)
	}
	if reqs()[0].Path != "/result" {
		t.Fatalf("path = %s", reqs()[0].Path)
	}
}

func TestStatusRecord(t *testing.T) {
	srv, reqs := capture(t, http.StatusOK, `{"create_at":1700000000,"next_at":1700000060,"tried":3,"state":2}`)
	rec, err := New(srv.URL).Status(context.Background(), "st")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rec.State() != Failed || rec.State().String() != "failed" {
		t.Errorf("State = %v", rec.State())
	}
	if rec.Tried() != 3 {
		t.Errorf("Tried = %d", rec.Tried())
	}
	if !rec.CreateAt().Equal(time.Unix(1700000000, 0)) || !rec.NextAt().Equal(time.Unix(1700000060, 0)) {
		t.Errorf("times = %v / %v", rec.CreateAt(), rec.NextAt())
	}
	if body := decodeBody(t, reqs()[0].Body); body["id"] != "st" {
		t.Errorf("body = %#v", body)
	}
}

func TestStatusDecodeError(t *testing.T) {
	for _, reply := range []string{"", "null", "[1,2]", "not json", `{"state":1} trailing`, `{"state":1}{"state":2}`} {
		srv, _ := capture(t, http.StatusOK, reply)
		_, err := New(srv.URL).Status(context.Background(), "st")
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("reply %q: expected *DecodeError, got %v", reply, err)
		}
	}
}

func TestStatusAllowsTrailingWhitespace(t *testing.T) {
	srv, _ := capture(t, http.StatusOK, "{\"state\":1}\n")
	rec, err := New(srv.URL).Status(context.Background(), "st")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rec.State() != Success {
		t.Fatalf("state = %v", rec.State())
	}
}

func TestDetailDecodesContent(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Record
	}{
		{
			name:  "empty response kept",
			reply: `{"content":"aGVsbG8=","response":""}`,
			want:  Record{"content": "hello", "response": ""},
		},
		{
			name:  "response decoded",
			reply: `{"content":"aGVsbG8=","response":"T0s="}`,
			want:  Record{"content": "hello", "response": "OK"},
		},
		{
			name:  "response absent",
			reply: `{"content":"aGVsbG8="}`,
			want:  Record{"content": "hello"},
		},
		{
			name:  "null response untouched",
			reply: `{"content":"aGVsbG8=","response":null}`,
			want:  Record{"content": "hello", "response": nil},
		},
		{
			name:  "null content",
			reply: `{"content":null,"type":"HTTPGET"}`,
			want:  Record{"content": "", "type": "HTTPGET"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := capture(t, http.StatusOK, tt.reply)
			got, err := New(srv.URL).Detail(context.Background(), "d")
			if err != nil {
				t.Fatalf("Detail: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Detail = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDetailBadBase64(t *testing.T) {
	srv, _ := capture(t, http.StatusOK, `{"content":"!!!"}`)
	_, err := New(srv.URL).Detail(context.Background(), "d")
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "content" {
		t.Fatalf("expected content DecodeError, got %v", err)
	}
}

func TestQueryTransportErrors(t *testing.T) {
	c := New(deadAddress(t))
	ctx := context.Background()

	if _, err := c.Result(ctx, "x"); !isTransport(err) {
		t.Errorf("Result: expected transport error, got %v", err)
	}
	if _, err := c.Status(ctx, "x"); !isTransport(err) {
		t.Errorf("Status: expected transport error, got %v", err)
	}
	if _, err := c.Detail(ctx, "x"); !isTransport(err) {
		t.Errorf("Detail: expected transport error, got %v", err)
	}
}

func isTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
