package throttle_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/adamwoolhether/formwire/client/throttle"
)

func ExampleNewRoundTripper() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Every attempt takes a token, so a form replayed after a 307 costs two.
	rt, err := throttle.NewRoundTripper(2, 1, func() *slog.Logger { return logger }, http.DefaultTransport)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: rt}

	_, err = throttle.NewRoundTripper(0, 1, nil, http.DefaultTransport)
	fmt.Println(err)
	// Output: rps[0] and burst[1] must be greater than zero
}
