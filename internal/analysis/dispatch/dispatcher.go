// Package dispatch delivers analysis job submissions to the external worker.
// Delivery is best-effort: the authoritative completion signal is the job's
// polled status field, not this request.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Payload is the flat JSON body posted to the analysis worker. The worker
// treats it as idempotent on its side; this system deduplicates rows, not
// dispatches.
type Payload struct {
	URL              string     `json:"url"`
	Name             string     `json:"name"`
	RecordingID      uuid.UUID  `json:"recording_id"`
	AnalysisID       uuid.UUID  `json:"analysis_id"`
	UserID           uuid.UUID  `json:"user_id"`
	CallID           *uuid.UUID `json:"call_id,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
	Source           string     `json:"source"`
	URLValidated     bool       `json:"url_validated"`
	ValidationMethod string     `json:"validation_method"`
}

// Dispatcher fires webhook payloads at the worker without ever surfacing an
// error or blocking the caller.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	transport  http.RoundTripper
	log        *logger.Logger
}

// New builds a dispatcher for the given worker webhook URL.
func New(webhookURL string, log *logger.Logger) *Dispatcher {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Dispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second, Transport: transport},
		transport:  transport,
		log:        log,
	}
}

// Dispatch sends the payload from its own goroutine and returns immediately.
// The caller must not depend on delivery; nothing is reported back.
func (d *Dispatcher) Dispatch(payload Payload) {
	go d.Deliver(context.Background(), payload)
}

// Deliver runs the ordered fallback chain synchronously. Each tier is tried
// only when the previous one raised a transport error; nothing propagates to
// the caller beyond the returned error (used by the retrying outbox worker;
// the fast path ignores it).
func (d *Dispatcher) Deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.WebhookDelivery("marshal", false, err.Error())
		return err
	}

	if err := d.postAndRead(ctx, body); err == nil {
		return nil
	} else {
		d.log.WebhookDelivery("json_post", false, err.Error())
	}

	if err := d.postDiscard(ctx, body); err == nil {
		return nil
	} else {
		d.log.WebhookDelivery("post_no_read", false, err.Error())
	}

	if err := d.rawRoundTrip(ctx, body); err != nil {
		d.log.WebhookDelivery("raw_roundtrip", false, err.Error())
		return err
	}
	return nil
}

// postAndRead is tier 1: a normal JSON POST whose response body is read and
// logged.
func (d *Dispatcher) postAndRead(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("worker returned status %d: %s", resp.StatusCode, string(respBody))
	}

	d.log.WebhookDelivery("json_post", true, "")
	d.log.Debug("analysis worker response", "status", resp.StatusCode, "body", string(respBody))
	return nil
}

// postDiscard is tier 2: the same POST, but success is assumed as soon as the
// request leaves without a transport error. The response is not inspected.
func (d *Dispatcher) postDiscard(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	d.log.WebhookDelivery("post_no_read", true, "")
	return nil
}

// rawRoundTrip is tier 3: the lowest-level primitive available, bypassing the
// client's redirect and cookie machinery entirely.
func (d *Dispatcher) rawRoundTrip(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.transport.RoundTrip(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	d.log.WebhookDelivery("raw_roundtrip", true, "")
	return nil
}
