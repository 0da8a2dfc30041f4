package report

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

var medals = [...]string{"🥇", "🥈", "🥉"}

func formatLeaderboard(rows []domain.LeaderboardRow) string {
	var b strings.Builder

	for _, row := range rows {
		if row.Podium {
			fmt.Fprintf(&b, "%s %s — %.1f points", medals[row.Rank-1], row.Username, row.FinalScore)
		} else {
			fmt.Fprintf(&b, "%d. %s — %.1f points", row.Rank, row.Username, row.FinalScore)
		}
		fmt.Fprintf(&b, " (%d translated, avg %.1f/100, %.0f min)\n",
			row.TranslatedCount, row.AvgScore, row.SessionMinutesSum)
	}

	return b.String()
}

func formatInactive(users []domain.ChatUser) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return "Wrote in the chat but translated nothing: " + strings.Join(names, ", ")
}
