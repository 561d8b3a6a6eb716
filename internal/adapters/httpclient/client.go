// Package httpclient implements the cross-service client ports over each
// service's published HTTP interface. The caller's raw token is forwarded
// on every request; no client ever signs a token of its own.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

type remoteError struct {
	Status int
	Code   string
	Msg    string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("remote call failed: status=%d code=%s message=%s", e.Status, e.Code, e.Msg)
}

type base struct {
	url string
	hc  *http.Client
}

func newBase(url string, hc *http.Client) base {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return base{url: strings.TrimRight(url, "/"), hc: hc}
}

// call performs one request and decodes the response envelope into out.
// Error envelopes are returned as *remoteError so callers can map status
// codes onto their port's sentinel errors. A transport failure is returned
// as-is: the caller cannot know whether the request reached the server.
func (b base) call(ctx context.Context, method, path string, headers map[string]string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.url+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &env)
		return &remoteError{Status: resp.StatusCode, Code: env.Error.Code, Msg: env.Error.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": token}
}
