// Package formdata builds HTML form request bodies.
//
// # Forms
//
// A [Form] collects named fields and generates either an
// application/x-www-form-urlencoded body, when every field is plain text,
// or a streamed multipart/form-data body:
//
//	f, err := formdata.New(formdata.WithCharset("shift-jis"))
//	err = f.AddField("name", "日本")
//	err = f.AddField("upload", file, formdata.WithContentType("image/png"))
//	body, err := f.Generate()
//
// [Form.Generate] may be called again for every attempt of a request; the
// first call seals the form against further fields.
//
// # Parameters
//
// Field names and filenames go through [FormatParam]. Values that encode
// to printable ASCII are backslash-quoted, others use the RFC 5987
// extended form:
//
//	name="email\ 1"
//	filename*=utf-8''%E6%97%A5%E6%9C%AC.txt
//
// # Writer
//
// [Writer] is the low-level framer. It is itself a [payload.Payload] and
// can be sent without a Form.
package formdata
