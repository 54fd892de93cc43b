package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"

	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/metrics"
)

// expoBatchSize is the per-request message limit of the Expo push API.
const expoBatchSize = 100

var expoTokenPattern = regexp.MustCompile(`^(ExponentPushToken|ExpoPushToken)\[[A-Za-z0-9_\-]+\]$`)

func ValidExpoToken(token string) bool { return expoTokenPattern.MatchString(token) }

type PushMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type PushTicket struct {
	Status  string `json:"status"` // ok | error
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

// DeviceGone reports a ticket telling us the token is dead.
func (t PushTicket) DeviceGone() bool {
	return t.Status == "error" && t.Details.Error == expo.ErrorDeviceNotRegistered
}

// PushSender delivers messages; tickets come back in message order.
type PushSender interface {
	Send(ctx context.Context, msgs []PushMessage) ([]PushTicket, error)
}

// ExpoPushClient sends through the Expo server SDK in batches of 100.
type ExpoPushClient struct {
	Host        string
	APIURL      string
	AccessToken string
	Transport   http.RoundTripper
	Timeout     time.Duration
	Retry       apperr.Policy
}

// NewExpoPushClient takes the full send endpoint, e.g. https://exp.host/--/api/v2/push/send.
func NewExpoPushClient(endpoint, accessToken string) *ExpoPushClient {
	host, api := splitExpoEndpoint(endpoint)
	return &ExpoPushClient{
		Host:        host,
		APIURL:      api,
		AccessToken: accessToken,
		Transport:   http.DefaultTransport,
		Timeout:     15 * time.Second,
		Retry:       apperr.DefaultPolicy(),
	}
}

// splitExpoEndpoint separates scheme://host from the API base path the SDK appends /push/send to.
// An endpoint without a path leaves the SDK default base path in place.
func splitExpoEndpoint(endpoint string) (host, api string) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Host == "" {
		return endpoint, ""
	}
	return u.Scheme + "://" + u.Host, strings.TrimSuffix(u.Path, "/push/send")
}

func (c *ExpoPushClient) Send(ctx context.Context, msgs []PushMessage) ([]PushTicket, error) {
	tickets := make([]PushTicket, 0, len(msgs))
	for start := 0; start < len(msgs); start += expoBatchSize {
		end := start + expoBatchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		var batch []PushTicket
		err := apperr.Retry(ctx, c.Retry, func(ctx context.Context) error {
			var err error
			batch, err = c.sendBatch(ctx, msgs[start:end])
			return err
		})
		if err != nil {
			metrics.RecordPush("failed", end-start)
			return tickets, err
		}
		for _, t := range batch {
			metrics.RecordPush(t.Status, 1)
		}
		tickets = append(tickets, batch...)
	}
	return tickets, nil
}

// sendBatch builds a client per call so the SDK's requests carry ctx.
func (c *ExpoPushClient) sendBatch(ctx context.Context, msgs []PushMessage) ([]PushTicket, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	client := expo.NewPushClient(&expo.ClientConfig{
		Host:   c.Host,
		APIURL: c.APIURL,
		HTTPClient: &http.Client{
			Transport: &expoTransport{ctx: ctx, base: c.Transport, token: c.AccessToken},
		},
	})

	out := make([]expo.PushMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, expo.PushMessage{
			To:       []expo.ExponentPushToken{expo.ExponentPushToken(m.To)},
			Title:    m.Title,
			Body:     m.Body,
			Data:     m.Data,
			Sound:    m.Sound,
			Priority: m.Priority,
		})
	}

	res, err := client.PublishMultiple(out)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindUnknown, "push provider rejected request", err)
	}
	if len(res) != len(msgs) {
		return nil, fmt.Errorf("push response has %d tickets for %d messages", len(res), len(msgs))
	}
	tickets := make([]PushTicket, len(res))
	for i, r := range res {
		tickets[i].Status = r.Status
		tickets[i].ID = r.ID
		tickets[i].Message = r.Message
		tickets[i].Details.Error = r.Details["error"]
	}
	return tickets, nil
}

// expoTransport binds requests to ctx, adds the access token and turns
// throttling and provider outages into retryable errors before the SDK reads the body.
type expoTransport struct {
	ctx   context.Context
	base  http.RoundTripper
	token string
}

func (t *expoTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if t.token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	res, err := base.RoundTrip(req)
	if err != nil {
		return nil, apperr.Network("push request failed", err)
	}
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		res.Body.Close()
		return nil, apperr.RateLimited("push provider rate limited")
	case res.StatusCode >= 500:
		res.Body.Close()
		return nil, apperr.Network(fmt.Sprintf("push provider status %d", res.StatusCode), nil)
	}
	return res, nil
}
