package cmd

import (
	"context"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// startProgress draws a wall-clock bar over the run duration, one tick per
// second. The returned func stops the bar and must be called once the run ends.
func startProgress(ctx context.Context, total time.Duration, w io.Writer) func() {
	seconds := int64(total / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	bar := progressbar.NewOptions64(seconds,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Simulating"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		_ = bar.Finish()
		_, _ = io.WriteString(w, "\n")
	}
}
