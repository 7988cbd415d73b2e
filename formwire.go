// Package formwire exposes the client and form builders.
package formwire

import (
	"github.com/adamwoolhether/formwire/client"
	"github.com/adamwoolhether/formwire/formdata"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a copy of http.DefaultClient and http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewForm instantiates an empty *Form with the provided options.
func NewForm(opts ...formdata.Option) (*formdata.Form, error) {
	return formdata.New(opts...)
}
