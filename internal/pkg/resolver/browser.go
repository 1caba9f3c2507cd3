package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher loads the target in headless Chrome and returns the text of
// the rendered document. Chrome renders a JSON response as a single <pre>,
// so the text is the original body.
type ChromeFetcher struct {
	Timeout   time.Duration
	UserAgent string
}

var _ BrowserFetcher = (*ChromeFetcher)(nil)

func (f *ChromeFetcher) FetchText(ctx context.Context, target string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		slog.Debug("chromedp: " + fmt.Sprintf(format, v...))
	}))
	defer cancelBrowser()

	var text string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp navigation: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty page for %s", target)
	}
	return text, nil
}
