package translate

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"traductor/log"
)

type TracedClient struct {
	client *http.Client
}

func NewTracedClient(timeout time.Duration) *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Metrics    log.RequestMetrics
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	var m log.RequestMetrics
	var dnsStart, tlsStart, wroteRequest time.Time

	trace := &httptrace.ClientTrace{
		GotConn:           func(info httptrace.GotConnInfo) { m.ConnReused = info.Reused },
		DNSStart:          func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { m.DNSTimeMs = ms(time.Since(dnsStart)) },
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			m.TLSTimeMs = ms(time.Since(tlsStart))
			m.TLSProto = state.NegotiatedProtocol
		},
		WroteRequest:         func(httptrace.WroteRequestInfo) { wroteRequest = time.Now() },
		GotFirstResponseByte: func() { m.TTFBMs = ms(time.Since(wroteRequest)) },
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	m.TotalTimeMs = ms(time.Since(start))

	return &TracedResponse{Body: body, StatusCode: resp.StatusCode, Metrics: m}, nil
}

// Warm opens a connection to url so the first real request skips the
// TLS handshake. It returns the handshake duration, or 0 on failure.
func (c *TracedClient) Warm(url string) time.Duration {
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { tlsDuration = time.Since(tlsStart) },
	}

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tlsDuration
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
