package notify

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"notifyclient/pkg/logx"
)

// Send submits a notification for driver to deliver to endpoint. payload is
// marshaled as-is into the "payload" field. With once set the server will not
// resend it on failure.
func (c *Client) Send(ctx context.Context, id, endpoint, driver string, payload any, once bool) bool {
	cmd := cmdSend
	if once {
		cmd = cmdSendOnce
	}
	p := Params{
		ID:       id,
		Driver:   driver,
		Endpoint: endpoint,
		Payload:  payload,
	}
	return c.exec(ctx, cmd, p, logx.String("id", id), logx.String("driver", driver))
}

// HTTPGet asks the server to GET uri with the given headers and query values.
// Empty headers or values are sent as null.
func (c *Client) HTTPGet(ctx context.Context, id, uri string, headers http.Header, values url.Values, once bool) bool {
	var msg GetMsg
	if len(headers) > 0 {
		msg.Headers = headers
	}
	if len(values) > 0 {
		msg.Values = values
	}
	return c.Send(ctx, id, uri, DriverHTTPGet, msg, once)
}

// HTTPPost asks the server to POST body to uri. Empty headers are left out of
// the payload entirely.
func (c *Client) HTTPPost(ctx context.Context, id, uri string, headers http.Header, body string, once bool) bool {
	msg := PostMsg{Body: body}
	if len(headers) > 0 {
		msg.Headers = headers
	}
	return c.Send(ctx, id, uri, DriverHTTPPost, msg, once)
}

// TelegramMarkdown sends MarkdownV2 text to a channel name the server maps to
// a chat.
func (c *Client) TelegramMarkdown(ctx context.Context, id, channel, markdown string, once bool) bool {
	return c.Send(ctx, id, channel, DriverTGMarkdown, markdown, once)
}

// TelegramHTML sends HTML formatted text to a channel.
func (c *Client) TelegramHTML(ctx context.Context, id, channel, html string, once bool) bool {
	return c.Send(ctx, id, channel, DriverTGHTML, html, once)
}

// TelegramPlain sends plain text to a channel.
func (c *Client) TelegramPlain(ctx context.Context, id, channel, text string, once bool) bool {
	return c.Send(ctx, id, channel, DriverTGPlain, text, once)
}

// SendGrid sends an email. options follow the SendGrid v3 mail send body
// (see mail.SGMailV3). The driver takes no endpoint.
func (c *Client) SendGrid(ctx context.Context, id string, options map[string]any, once bool) bool {
	return c.Send(ctx, id, "", DriverSendGrid, options, once)
}

// SendGridMail is SendGrid with a typed message.
func (c *Client) SendGridMail(ctx context.Context, id string, m *mail.SGMailV3, once bool) bool {
	return c.Send(ctx, id, "", DriverSendGrid, m, once)
}

// SMSAV8D sends an SMS through every8d. phone holds one or more numbers
// separated by commas. The gateway resends by itself, so the notification is
// always submitted with once semantics.
func (c *Client) SMSAV8D(ctx context.Context, id, phone, text string, opt SMSOptions) bool {
	msg := SMSMsg{
		Content: text,
		Subject: opt.Subject,
		Time:    opt.Time,
		Retry:   opt.RetryMinutes,
	}
	return c.Send(ctx, id, phone, DriverSMSAV8D, msg, true)
}
