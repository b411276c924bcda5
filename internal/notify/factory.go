package notify

import (
	"io"

	"github.com/matthieukhl/storepulse/internal/types"
)

// New returns a webhook notifier, or a preview notifier writing to out when
// there is no webhook or dryRun is set.
func New(webhookURL string, dryRun bool, out io.Writer, label string) types.Notifier {
	if dryRun || webhookURL == "" {
		return NewPreviewNotifier(out, label)
	}
	return NewSlackNotifier(webhookURL)
}
