package bot

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
	"github.com/heartmarshall/sprachduell-bot/internal/service/submission"
)

func formatBatch(assignments []domain.Assignment) string {
	var b strings.Builder
	b.WriteString("Your sentences for today:\n\n")
	for _, a := range assignments {
		fmt.Fprintf(&b, "%d. %s\n", a.Seq, a.Text)
	}
	b.WriteString("\nReply with /translate <number>. <translation> — one sentence per line.")
	return b.String()
}

func formatFinish(r domain.FinishResult) string {
	if r.MissedCount == 0 {
		return fmt.Sprintf("Round finished. %d of %d sentences translated — nothing missed.",
			r.TranslatedCount, r.TotalCount)
	}
	return fmt.Sprintf("Round finished. %d of %d translated, %d missed — penalty %.0f points.",
		r.TranslatedCount, r.TotalCount, r.MissedCount, r.Penalty)
}

func formatResults(username string, results []submission.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, your results:\n", username)

	for _, res := range results {
		switch res.Status {
		case submission.StatusGraded:
			fmt.Fprintf(&b, "\nSentence %d — %d/100\n%s\n", res.Seq, *res.Score, res.Feedback)
		case submission.StatusScorePending:
			fmt.Fprintf(&b, "\nSentence %d — score pending\n%s\n", res.Seq, res.Feedback)
		default:
			fmt.Fprintf(&b, "\nSentence %d — %s\n", res.Seq, res.Feedback)
		}
	}

	return b.String()
}

func formatStats(username string, day, week domain.UserStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, your stats:\n\n", username)

	fmt.Fprintf(&b, "Today: %d/%d translated, avg %.1f/100, %.1f min per session, score %.1f\n",
		day.TranslatedCount, day.TotalAssigned, day.AvgScore, day.SessionMinutesAvg, day.FinalScore)

	// Weekly totals read the sum aggregate even though pace is shown as avg.
	fmt.Fprintf(&b, "Last 7 days: %d/%d translated, avg %.1f/100, %.0f min total, %d missed\n",
		week.TranslatedCount, week.TotalAssigned, week.AvgScore, week.SessionMinutesSum, week.MissedCount)

	return b.String()
}
