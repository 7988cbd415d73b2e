package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// progressWriter is an io.Writer, logging upload progress at
// most once per second.
type progressWriter struct {
	w           io.Writer
	logger      *slog.Logger
	attempt     int
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.log("uploading")
	}

	if pw.total >= 0 && pw.transferred == pw.total {
		pw.log("upload complete")
	}

	return n, err
}

func (pw *progressWriter) log(msg string) {
	elapsed := time.Since(pw.startTime)
	attrs := []any{
		"attempt", pw.attempt,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", pw.transferred,
		"total", pw.total,
		"mbps", fmt.Sprintf("%.2f", float64(pw.transferred)/elapsed.Seconds()/(1024*1024)),
	}
	if pw.total > 0 {
		attrs = append(attrs, "progress", fmt.Sprintf("%.1f%%", float64(pw.transferred)/float64(pw.total)*100))
	}
	pw.logger.Info(msg, attrs...)
}

// ctxWriter stops accepting bytes once ctx is done.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *ctxWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}
