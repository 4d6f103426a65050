package notifier

import (
	"fmt"
	"html"
	"strings"

	"MarketLens/internal/calculator"
	"MarketLens/internal/model"
)

// FormatRunReport formats a pipeline result into a Telegram message.
// summaries may omit datasets; their price line is then skipped.
func FormatRunReport(res *model.PipelineResult, summaries map[model.DatasetName]calculator.Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketLens run</b> | %s\n", res.StartedAt.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n\n", html.EscapeString(res.RunID)))

	for _, name := range model.AllDatasets {
		title := html.EscapeString(name.Title())
		if ds, ok := res.Datasets[name]; ok {
			b.WriteString(fmt.Sprintf("✅ <b>%s</b>: %d observations, %d dropped\n", title, ds.Len(), res.Dropped[name]))
			if s, ok := summaries[name]; ok {
				b.WriteString(fmt.Sprintf("   Last close %s (%s), change %s%%\n",
					s.LastClose.StringFixed(2), s.LastDate.Format(model.DateLayout), signed(s.ChangePct.StringFixed(2))))
				b.WriteString(fmt.Sprintf("   Range %s - %s, RSI %.0f\n",
					s.Low.StringFixed(2), s.High.StringFixed(2), s.RSI))
			}
			continue
		}
		if err, ok := res.Failures[name]; ok {
			b.WriteString(fmt.Sprintf("❌ <b>%s</b>: %s\n", title, html.EscapeString(err.Error())))
		}
	}

	if len(res.Failures) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d of %d datasets failed", len(res.Failures), len(res.Failures)+len(res.Datasets)))
	}
	return b.String()
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	return "Available commands:\n• /run  refresh all datasets now\n• /status  show the last run"
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}
