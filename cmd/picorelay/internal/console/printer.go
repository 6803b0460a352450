package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tinyland-inc/picorelay/pkg/relay"
)

// Printer writes relay notifications to the terminal. Quick-reply
// affordances become a /reply hint.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Notify implements relay.Operator.
func (p *Printer) Notify(_ context.Context, text string, affordance *relay.Affordance) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.w, "\n%s\n", text); err != nil {
		return err
	}
	if affordance == nil {
		return nil
	}
	id, err := relay.ParseReplyToken(affordance.Token)
	if err != nil {
		_, err = fmt.Fprintf(p.w, "  [%s]\n", affordance.Label)
		return err
	}
	_, err = fmt.Fprintf(p.w, "  %s: /reply %d <text>\n", affordance.Label, id)
	return err
}
