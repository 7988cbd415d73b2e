package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/formwire/client/replay"
	"github.com/adamwoolhether/formwire/client/throttle"
	"github.com/adamwoolhether/formwire/payload"
)

// Client wraps the std-lib *http.Client.
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs.
type Client struct {
	c                 *http.Client
	logger            *slog.Logger
	tracer            trace.Tracer
	noFollowRedirects bool
}

// Build constructs a Client from the given options.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		logger:            slog.Default(),
		tracer:            noop.NewTracerProvider().Tracer("no-op tracer"),
		noFollowRedirects: opts.noFollowRedirects,
	}

	// Copy so the options below never leak into a shared client.
	hc := *http.DefaultClient
	if opts.client != nil {
		hc = *opts.client
	}
	client.c = &hc

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Do will fire the request, and write response to the given dest object if any.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody != nil {
			d := json.NewDecoder(resp.Body)

			if settings.useJSONNum {
				d.UseNumber()
			}

			if err := d.Decode(settings.responseBody); err != nil {
				return fmt.Errorf("decoding body: %w", err)
			}
		}

		return nil
	}

	return c.exec(req, expCode, doFunc)
}

// Request instantiates an *http.Request with the provided information.
// Replay and progress messages of its body go to the Client's logger.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, append([]RequestOption{withLogger(c.logger)}, opts...)...)
}

// URL creates a url.URL for use in Request.
// It's just a convenience method that wraps the public URL func.
func (c *Client) URL(scheme, host, path string, opts ...URLOption) *url.URL {
	return URL(scheme, host, path, opts...)
}

// exec runs the request and injected function on success after validating
// the expected status code. The outcome is recorded on the request's body
// coordinator, if it has one.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) (err error) {
	ctx, span := c.tracer.Start(req.Context(), "client.exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	coord, hasBody := replay.FromContext(req.Context())
	defer func() {
		if hasBody {
			coord.Finish(err)
			span.SetAttributes(
				attribute.Int("body.attempts", coord.Attempts()),
				attribute.String("body.state", coord.State().String()),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	req = req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	// net/http asks for a fresh body before consulting CheckRedirect, so a
	// client that never follows must not offer one.
	if c.noFollowRedirects {
		req.GetBody = nil
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != expCode {
		b, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if rerr != nil {
			b = []byte("unable to read body")
		}

		statusErr := ErrUnexpectedStatusCode
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			statusErr = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        statusErr,
		}
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

// Request instantiates an *http.Request with the provided information.
// The body comes from at most one of WithPayload, WithForm and WithBody
// and is resent from its source when a redirect requires it. Content-Type
// defaults to the body's own type, or `application/json` when there is
// no body, unless set via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	coord, err := settings.coordinator(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	if settings.contentType != nil {
		req.Header.Set("Content-Type", *settings.contentType)
	}

	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	if coord == nil {
		if settings.contentType == nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	req, err = coord.Attach(req)
	if err != nil {
		return nil, fmt.Errorf("attaching request body: %w", err)
	}

	return req, nil
}

// coordinator builds the replay coordinator for whichever body was set.
func (s *requestOpts) coordinator(ctx context.Context) (*replay.Coordinator, error) {
	var set int
	for _, b := range []bool{s.body != nil, s.form != nil, s.payload != nil} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("only one of WithPayload, WithForm and WithBody may be used")
	}

	var ropts []replay.Option
	if s.logger != nil {
		ropts = append(ropts, replay.WithLogger(s.logger))
	}
	if s.progress {
		ropts = append(ropts, replay.WithProgress())
	}

	switch {
	case s.form != nil:
		return replay.FromGenerator(ctx, s.form, ropts...)

	case s.payload != nil:
		return replay.FromPayload(ctx, s.payload, ropts...)

	case s.body != nil:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(s.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}

		p, err := payload.New(buf.Bytes(), payload.WithContentType("application/json"))
		if err != nil {
			return nil, fmt.Errorf("wrapping request payload: %w", err)
		}

		return replay.FromPayload(ctx, p, ropts...)
	}

	return nil, nil
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}
