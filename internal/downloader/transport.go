package downloader

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const userAgent = "rbit/1.0"

type restyTransport struct {
	client *resty.Client
}

// NewRestyTransport returns a Transport that bounds connecting and reading
// each request by timeout and never retries.
func NewRestyTransport(timeout time.Duration) Transport {
	dialer := &net.Dialer{Timeout: timeout}

	client := resty.New().
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		}).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0).
		SetCookieJar(nil) // the session cookie is attached explicitly

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		log.Debugf("Outgoing request: %s %s", req.Method, req.URL)
		log.Debugf("Outgoing headers: %v", redactHeader(req.Header))
		return nil
	})
	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		log.Debugf("Response: %s in %s", resp.Status(), resp.Time())
		return nil
	})

	return &restyTransport{client: client}
}

func (t *restyTransport) Do(ctx context.Context, pr *PreparedRequest) (*Response, error) {
	req := t.client.R().SetContext(ctx)
	for _, h := range pr.Header {
		req.SetHeader(h.Name, h.Value)
	}

	switch pr.Body.Kind {
	case FormBody:
		req.SetFormDataFromValues(pr.Body.Values())
	case MultipartBody:
		fields := make(map[string]string, len(pr.Body.Fields))
		for _, f := range pr.Body.Fields {
			fields[f.Name] = f.Value
		}
		req.SetMultipartFormData(fields)
		if f := pr.Body.File; f != nil {
			req.SetFileReader(f.FieldName, f.Filename, bytes.NewReader(f.Content))
		}
	}

	resp, err := req.Execute(pr.Method, pr.URL)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.String(),
		Cookies:    resp.Cookies(),
	}, nil
}

func redactHeader(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Cookie") != "" {
		out.Set("Cookie", "<redacted>")
	}
	return out
}
