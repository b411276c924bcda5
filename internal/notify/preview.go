package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/matthieukhl/storepulse/internal/types"
)

// PreviewNotifier prints messages instead of delivering them.
type PreviewNotifier struct {
	out   io.Writer
	label string
}

func NewPreviewNotifier(out io.Writer, label string) *PreviewNotifier {
	return &PreviewNotifier{out: out, label: label}
}

func (n *PreviewNotifier) Notify(ctx context.Context, text string) error {
	if n.label != "" {
		if _, err := fmt.Fprintf(n.out, "--- Message Preview (%s) ---\n", n.label); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintln(n.out, "--- Message Preview ---"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(n.out, text)
	return err
}

var _ types.Notifier = (*PreviewNotifier)(nil)
