// Package client provides the core implementation of the configurable HTTP
// client built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// # Sending Forms
//
// A formdata.Form is sent with [WithForm]. Its body is streamed, and
// generated again if a 307 or 308 redirect asks for the body to be resent:
//
//	f, err := formdata.New()
//	err = f.AddField("report", file)
//	req, err := c.Request(ctx, u, http.MethodPost, client.WithForm(f))
//	err = c.Do(req, http.StatusCreated)
//
// A single payload is sent with [WithBody]. Seekable payloads are rewound
// for a redirect; a one-shot stream fails it with a [ConnectionError]
// instead of sending a truncated body:
//
//	p, err := payload.New(os.Stdin)
//	req, err := c.Request(ctx, u, http.MethodPut, client.WithBody(p))
//	if err := c.Do(req, http.StatusOK); client.IsConnection(err) { ... }
//
// For lower-level control see the
// [github.com/adamwoolhether/formwire/client/replay] package.
package client
