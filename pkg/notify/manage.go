package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"notifyclient/pkg/logx"
)

// Resend forces the server to deliver id again, once.
func (c *Client) Resend(ctx context.Context, id string) bool {
	return c.exec(ctx, cmdResend, idParams{ID: id}, logx.String("id", id))
}

// Delete removes id from the server.
func (c *Client) Delete(ctx context.Context, id string) bool {
	return c.exec(ctx, cmdDelete, idParams{ID: id}, logx.String("id", id))
}

// Clear deletes jobs created before the given time. The server keeps jobs
// that are still pending.
func (c *Client) Clear(ctx context.Context, before time.Time) bool {
	return c.exec(ctx, cmdClear, clearParams{Before: before.Unix()}, logx.Int64("before", before.Unix()))
}

// ForceClear deletes every job created before the given time, whatever its
// state.
func (c *Client) ForceClear(ctx context.Context, before time.Time) bool {
	return c.exec(ctx, cmdForceClear, clearParams{Before: before.Unix()}, logx.Int64("before", before.Unix()))
}

// Result returns the latest delivery result of id as the server sent it. The
// stock server returns base64; decoding is left to the caller.
func (c *Client) Result(ctx context.Context, id string) (string, error) {
	return c.call(ctx, cmdResult, idParams{ID: id})
}

// Status returns the status record of id.
func (c *Client) Status(ctx context.Context, id string) (Record, error) {
	return c.record(ctx, cmdStatus, id)
}

// Detail returns the detail record of id. "content" is base64-decoded in
// place; "response" is decoded only when present and not empty.
func (c *Client) Detail(ctx context.Context, id string) (Record, error) {
	rec, err := c.record(ctx, cmdDetail, id)
	if err != nil {
		return nil, err
	}

	content, err := decodeField(rec, "content")
	if err != nil {
		return nil, &DecodeError{Command: cmdDetail, Field: "content", Err: err}
	}
	rec["content"] = content

	if s, ok := rec["response"].(string); ok && s != "" {
		resp, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, &DecodeError{Command: cmdDetail, Field: "response", Err: err}
		}
		rec["response"] = string(resp)
	}
	return rec, nil
}

func (c *Client) record(ctx context.Context, command, id string) (Record, error) {
	body, err := c.call(ctx, command, idParams{ID: id})
	if err != nil {
		return nil, err
	}

	var rec Record
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, &DecodeError{Command: command, Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data after JSON object")
		}
		return nil, &DecodeError{Command: command, Err: err}
	}
	if rec == nil {
		return nil, &DecodeError{Command: command, Err: errors.New("response is not a JSON object")}
	}
	return rec, nil
}

// decodeField base64-decodes rec[key]. A missing or null field decodes to "".
func decodeField(rec Record, key string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New("not a string")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
