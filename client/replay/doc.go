// Package replay supplies request bodies to net/http across redirects.
//
// A [Coordinator] wraps either a [Generator] (such as a form) or a single
// [payload.Payload]. [Coordinator.Attach] installs the first body and sets
// the request's GetBody, which net/http calls before following a 307 or
// 308 redirect:
//
//	c, err := replay.FromGenerator(ctx, form)
//	req, err = c.Attach(req)
//	resp, err := http.DefaultClient.Do(req)
//	c.Finish(err)
//
// Generated bodies are built again for every attempt and seekable payloads
// are rewound. A one-shot stream is never resent; the follow-up attempt
// fails with a [ConnectionError] whose cause is a [NonSeekableError].
//
// Bodies stream through a pipe, written by one goroutine per attempt. The
// next attempt starts only after the previous writer has stopped.
package replay
