// Package payload wraps request body values in a uniform, streamable
// [Payload].
//
// # Kinds
//
// [New] dispatches on the value's [Kind]:
//
//	string             -> text, encoded with the content type's charset
//	[]byte             -> in-memory bytes
//	*os.File           -> file streamed from its current offset
//	payload.TextStream -> UTF-8 reader transcoded while streaming
//	io.ReadSeeker      -> seekable stream
//	io.Reader          -> one-shot stream
//
// Anything else fails with [ErrUnsupportedValue].
//
// # Replay
//
// Seekable payloads implement [Rewinder] and may be written any number of
// times. A one-shot stream may be written once; the caller must supply a
// re-readable source if the body might need to be resent.
//
//	p, err := payload.New("日本", payload.WithContentType("text/plain; charset=shift-jis"))
//	n, err := p.WriteTo(conn)
package payload
