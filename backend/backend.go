// Package backend holds thin clients for the workflow-execution and
// document-insight services.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/flowcanvas/metrics"
)

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Service   string
	Operation string
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s %s: status %d", e.Service, e.Operation, e.Code)
	}
	return fmt.Sprintf("backend: %s %s: status %d: %s", e.Service, e.Operation, e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

const maxErrorBody = 512

// caller is the shared request path of both clients.
type caller struct {
	http    *client.Client
	service string
}

func newCaller(service, baseURL string, timeout time.Duration) caller {
	c := client.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return caller{http: c, service: service}
}

// do runs one request and decodes a JSON response into out.
func (c caller) do(ctx context.Context, operation, method, path string, cfg client.Config, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.BackendRequestDuration.
			WithLabelValues(c.service, operation, outcome).
			Observe(time.Since(start).Seconds())
	}()

	cfg.Ctx = ctx
	if cfg.Header == nil {
		cfg.Header = map[string]string{}
	}
	cfg.Header["Accept"] = "application/json"

	var resp *client.Response
	switch method {
	case "GET":
		resp, err = c.http.Get(path, cfg)
	case "POST":
		resp, err = c.http.Post(path, cfg)
	default:
		return fmt.Errorf("backend: %s %s: unsupported method %s", c.service, operation, method)
	}
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", c.service, operation, err)
	}
	defer resp.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		body := string(resp.Body())
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{Service: c.service, Operation: operation, Code: code, Body: body}
	}

	if out == nil {
		return nil
	}
	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("backend: %s %s: decode: %w", c.service, operation, err)
	}
	return nil
}
