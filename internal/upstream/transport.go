package upstream

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tahcohcat/chandu-voice/internal/logger"
)

// loggingTransport records method, URL, latency and status of each outbound
// request. Bodies are only dumped when logBodies is set.
type loggingTransport struct {
	base      http.RoundTripper
	name      string
	logBodies bool
	logger    *logger.Log
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	t.logger.Debug(fmt.Sprintf("-> %s %s", req.Method, redactURL(req)))

	if t.logBodies && req.Body != nil && req.Method == http.MethodPost {
		var buf bytes.Buffer
		bodyBytes, _ := io.ReadAll(io.TeeReader(req.Body, &buf))
		t.logger.Debug(fmt.Sprintf("request body: %s", Truncate(string(bodyBytes), 2000)))
		req.Body = io.NopCloser(&buf)
	}

	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.logger.WithError(err).WithDuration("elapsed", elapsed).Warn("<- transport error")
		return resp, err
	}

	t.logger.WithDuration("elapsed", elapsed).Debug(fmt.Sprintf("<- status %d", resp.StatusCode))
	return resp, nil
}

// redactURL hides the query-string credential some providers use.
func redactURL(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
