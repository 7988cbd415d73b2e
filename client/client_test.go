package client_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/formwire/client"
	"github.com/adamwoolhether/formwire/client/throttle"
	"github.com/adamwoolhether/formwire/formdata"
	"github.com/adamwoolhether/formwire/payload"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestBuild_InvalidOptions(t *testing.T) {
	testCases := map[string]struct {
		opt client.Option
		err error
	}{
		"nil client":       {opt: client.WithClient(nil)},
		"nil transport":    {opt: client.WithTransport(nil)},
		"nil tracer":       {opt: client.WithTracer(nil)},
		"negative timeout": {opt: client.WithTimeout(-time.Second)},
		"zero rps":         {opt: client.WithThrottle(0, 1), err: throttle.ErrMustNotBeZero},
		"zero burst":       {opt: client.WithThrottle(1, 0), err: throttle.ErrMustNotBeZero},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := client.Build(tc.opt)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Errorf("exp %v, got %v", tc.err, err)
			}
		})
	}
}

func TestBuild_CopiesSuppliedClient(t *testing.T) {
	var gotUA string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotUA = r.Header.Get("User-Agent")
		return http.DefaultTransport.RoundTrip(r)
	})

	supplied := &http.Client{Transport: base, Timeout: time.Minute}
	before := *http.DefaultClient

	c, err := client.Build(
		client.WithClient(supplied),
		client.WithTimeout(time.Second),
		client.WithNoFollowRedirects(),
		client.WithUserAgent("formwire-test/1.0"),
	)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	if supplied.Timeout != time.Minute || supplied.CheckRedirect != nil {
		t.Error("exp supplied client settings untouched")
	}
	if _, ok := supplied.Transport.(roundTripFunc); !ok {
		t.Errorf("exp supplied transport untouched, got %T", supplied.Transport)
	}
	if http.DefaultClient.Timeout != before.Timeout || http.DefaultClient.CheckRedirect != nil {
		t.Error("exp http.DefaultClient untouched")
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}

	req, err := c.Request(t.Context(), u, http.MethodGet)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	// The copy still goes through the supplied transport, with the copy's options.
	if err := c.Do(req, http.StatusFound); err != nil {
		t.Fatalf("exp redirect response, got: %v", err)
	}
	if gotUA != "formwire-test/1.0" {
		t.Errorf("exp user agent via supplied transport, got %q", gotUA)
	}
}

func TestRequest_ContentType(t *testing.T) {
	u := client.URL("https", "localhost", "/upload")

	newForm := func(t *testing.T, multipart bool) *formdata.Form {
		t.Helper()

		f, err := formdata.New(formdata.WithBoundary("ct_boundary"))
		if err != nil {
			t.Fatalf("creating form: %v", err)
		}
		var value any = "v"
		if multipart {
			value = []byte("v")
		}
		if err := f.AddField("k", value); err != nil {
			t.Fatalf("adding field: %v", err)
		}
		return f
	}

	blob, err := payload.New([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("creating payload: %v", err)
	}

	testCases := map[string]struct {
		opts       func(t *testing.T) []client.RequestOption
		expType    string
		expLen     int64
		expGetBody bool
	}{
		"no body": {
			opts:    func(*testing.T) []client.RequestOption { return nil },
			expType: "application/json",
		},
		"no body explicit": {
			opts: func(*testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithContentType("text/csv")}
			},
			expType: "text/csv",
		},
		"json payload": {
			opts: func(*testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithPayload(map[string]int{"n": 1})}
			},
			expType:    "application/json",
			expLen:     int64(len("{\"n\":1}\n")),
			expGetBody: true,
		},
		"url-encoded form": {
			opts: func(t *testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithForm(newForm(t, false))}
			},
			expType:    "application/x-www-form-urlencoded",
			expLen:     int64(len("k=v")),
			expGetBody: true,
		},
		"multipart form": {
			opts: func(t *testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithForm(newForm(t, true))}
			},
			expType:    "multipart/form-data; boundary=ct_boundary",
			expGetBody: true,
		},
		"multipart form explicit": {
			opts: func(t *testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithForm(newForm(t, true)), client.WithContentType("multipart/mixed")}
			},
			expType:    "multipart/mixed",
			expGetBody: true,
		},
		"bytes body": {
			opts: func(*testing.T) []client.RequestOption {
				return []client.RequestOption{client.WithBody(blob)}
			},
			expType:    "application/octet-stream",
			expLen:     2,
			expGetBody: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			req, err := client.Request(t.Context(), u, http.MethodPost, tc.opts(t)...)
			if err != nil {
				t.Fatalf("creating request: %v", err)
			}

			if got := req.Header.Get("Content-Type"); got != tc.expType {
				t.Errorf("exp content type %q, got %q", tc.expType, got)
			}
			if (req.GetBody != nil) != tc.expGetBody {
				t.Errorf("exp GetBody set %v, got %v", tc.expGetBody, req.GetBody != nil)
			}
			if tc.expLen > 0 && req.ContentLength != tc.expLen {
				t.Errorf("exp content length %d, got %d", tc.expLen, req.ContentLength)
			}
		})
	}
}

func TestRequest_HeadersAndCookies(t *testing.T) {
	p, err := payload.New("body")
	if err != nil {
		t.Fatalf("creating payload: %v", err)
	}

	req, err := client.Request(t.Context(), client.URL("https", "localhost", "/"), http.MethodPut,
		client.WithBody(p),
		client.WithHeaders(map[string][]string{"X-Trace": {"a", "b"}}),
		client.WithCookies(&http.Cookie{Name: "session", Value: "s1"}),
	)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, req.Header.Values("X-Trace")); diff != "" {
		t.Errorf("headers mismatch (-exp +got):\n%s", diff)
	}
	if c, err := req.Cookie("session"); err != nil || c.Value != "s1" {
		t.Errorf("exp session cookie, got %v (%v)", c, err)
	}
}

func TestClient_Do(t *testing.T) {
	type echo struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": r.PostForm.Get("name"), "count": len(r.PostForm)})
	})
	mux.HandleFunc("/number", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":12345678901234567}`))
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/status/") {
		case "401":
			w.WriteHeader(http.StatusUnauthorized)
		case "403":
			w.WriteHeader(http.StatusForbidden)
		case "large":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(bytes.Repeat([]byte("Y"), 8192))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream down")
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	t.Run("form echoed into destination", func(t *testing.T) {
		form, err := formdata.NewFrom(map[string]string{"name": "quarterly", "year": "2026"})
		if err != nil {
			t.Fatalf("creating form: %v", err)
		}

		req, err := c.Request(t.Context(), mustURL(t, ts.URL+"/echo"), http.MethodPost, client.WithForm(form))
		if err != nil {
			t.Fatalf("creating request: %v", err)
		}

		var got echo
		if err := c.Do(req, http.StatusOK, client.WithDestination(&got)); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if diff := cmp.Diff(echo{Name: "quarterly", Count: 2}, got); diff != "" {
			t.Errorf("response mismatch (-exp +got):\n%s", diff)
		}
	})

	t.Run("json numbers", func(t *testing.T) {
		req, err := c.Request(t.Context(), mustURL(t, ts.URL+"/number"), http.MethodGet)
		if err != nil {
			t.Fatalf("creating request: %v", err)
		}

		var raw map[string]any
		if err := c.Do(req, http.StatusOK, client.WithDestination(&raw), client.WithJSONNumb()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if n, ok := raw["id"].(json.Number); !ok || n.String() != "12345678901234567" {
			t.Errorf("exp json.Number 12345678901234567, got %T %v", raw["id"], raw["id"])
		}
	})

	t.Run("undecodable destination", func(t *testing.T) {
		req, err := c.Request(t.Context(), mustURL(t, ts.URL+"/garbage"), http.MethodGet)
		if err != nil {
			t.Fatalf("creating request: %v", err)
		}

		var got echo
		err = c.Do(req, http.StatusOK, client.WithDestination(&got))
		if err == nil || errors.Is(err, client.ErrUnexpectedStatusCode) {
			t.Fatalf("exp decode error, got: %v", err)
		}
	})

	statusCases := map[string]struct {
		path    string
		status  int
		auth    bool
		bodyMax int
		body    string
	}{
		"unauthorized":    {path: "/status/401", status: http.StatusUnauthorized, auth: true},
		"forbidden":       {path: "/status/403", status: http.StatusForbidden, auth: true},
		"bad gateway":     {path: "/status/502", status: http.StatusBadGateway, body: "upstream down"},
		"capped err body": {path: "/status/large", status: http.StatusInternalServerError, bodyMax: 4 << 10},
	}

	for name, tc := range statusCases {
		t.Run(name, func(t *testing.T) {
			form, err := formdata.NewFrom(map[string]string{"k": "v"})
			if err != nil {
				t.Fatalf("creating form: %v", err)
			}

			req, err := c.Request(t.Context(), mustURL(t, ts.URL+tc.path), http.MethodPost, client.WithForm(form))
			if err != nil {
				t.Fatalf("creating request: %v", err)
			}

			err = c.Do(req, http.StatusOK)

			var statusErr *client.UnexpectedStatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
				t.Fatalf("exp *UnexpectedStatusError with %d, got: %v", tc.status, err)
			}
			if !errors.Is(err, client.ErrUnexpectedStatusCode) {
				t.Errorf("exp ErrUnexpectedStatusCode, got: %v", err)
			}
			if errors.Is(err, client.ErrAuthFailure) != tc.auth {
				t.Errorf("exp ErrAuthFailure %v, got: %v", tc.auth, err)
			}
			if tc.body != "" && statusErr.Body != tc.body {
				t.Errorf("exp body %q, got %q", tc.body, statusErr.Body)
			}
			if tc.bodyMax > 0 && len(statusErr.Body) != tc.bodyMax {
				t.Errorf("exp error body capped at %d, got %d", tc.bodyMax, len(statusErr.Body))
			}
		})
	}
}

func TestClient_ThrottledReplay(t *testing.T) {
	rs := newRedirectServer(t, http.StatusTemporaryRedirect)

	var logs bytes.Buffer
	c, err := client.Build(
		client.WithThrottle(20, 1),
		client.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	form, err := formdata.New()
	if err != nil {
		t.Fatalf("creating form: %v", err)
	}
	if err := form.AddField("data", strings.NewReader("throttled contents")); err != nil {
		t.Fatalf("adding field: %v", err)
	}

	req, err := c.Request(t.Context(), rs.url(t), http.MethodPost, client.WithForm(form))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	start := time.Now()
	if err := c.Do(req, http.StatusCreated); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Burst 1 at 20 rps: the replayed attempt waits for a fresh token.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("exp the replayed attempt to be throttled, took %v", elapsed)
	}
	if !strings.Contains(logs.String(), "attempt=2") {
		t.Errorf("exp throttle log for the second attempt, got: %s", logs.String())
	}
	if diff := cmp.Diff(string(rs.body("/start")), string(rs.body("/final"))); diff != "" {
		t.Errorf("replayed body differs (-first +final):\n%s", diff)
	}
}

func TestClient_URL(t *testing.T) {
	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	got := c.URL("https", "uploads.example.com", "/v1/forms",
		client.WithPort(8443),
		client.WithQueryStrings(map[string]string{"dry_run": "true"}),
	)

	if exp := "https://uploads.example.com:8443/v1/forms?dry_run=true"; got.String() != exp {
		t.Errorf("exp %q, got %q", exp, got.String())
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing url: %v", err)
	}
	return u
}
