// internal/browser/context.go
package browser

import (
	"context"
)

// CombineContext derives a context from ctx1, which carries the chromedp
// target, that is also canceled when ctx2 is done. ctx2 typically carries the
// caller's deadline or abort signal.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
