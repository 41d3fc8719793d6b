package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Summary describes a finished run.
type Summary struct {
	Mode         string
	Pages        int
	Captured     int
	RunDir       string
	DocumentPath string
}

// Message renders s as a short plain-text notification.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sitedoc %s run finished", s.Mode)
	if s.Pages > 0 {
		fmt.Fprintf(&b, ": captured %d of %d pages", s.Captured, s.Pages)
	}
	if s.RunDir != "" {
		fmt.Fprintf(&b, "\nimages: %s", s.RunDir)
	}
	if s.DocumentPath != "" {
		fmt.Fprintf(&b, "\ndocument: %s", s.DocumentPath)
	}
	return b.String()
}

// SendSummary posts the run summary to endpoint.
func SendSummary(ctx context.Context, client *http.Client, endpoint string, s Summary) error {
	return Send(ctx, client, endpoint, s.Message())
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	if endpoint == "" {
		return errors.New("notification endpoint is empty")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
