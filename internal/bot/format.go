package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/MikePodsytnik/cinemabot/internal/database"
	"github.com/MikePodsytnik/cinemabot/internal/tmdb"
)

// overviews longer than this many runes are cut at a word boundary
const maxOverviewRunes = 800

// Button is one inline keyboard button; exactly one of URL or Data is set
type Button struct {
	Text string
	URL  string
	Data string
}

// Keyboard is an inline keyboard, row by row
type Keyboard struct {
	Rows [][]Button
}

// FormatCard renders the HTML description of a film
func FormatCard(m *tmdb.Movie, watchURL string) string {
	var sb strings.Builder

	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(m.Title))
	if m.Year != "" {
		sb.WriteString(" (" + html.EscapeString(m.Year) + ")")
	}
	sb.WriteString("</b>\n")

	if m.Rating != nil {
		fmt.Fprintf(&sb, "<b>Рейтинг:</b> %.1f\n", *m.Rating)
	}

	if overview := truncateOverview(m.Overview); overview != "" {
		sb.WriteString("<b>Описание:</b> " + html.EscapeString(overview) + "\n")
	}

	if watchURL != "" {
		sb.WriteString("<b>Смотреть:</b> " + html.EscapeString(watchURL) + "\n")
	} else {
		sb.WriteString("<b>Смотреть:</b> не нашёл рабочую ссылку\n")
	}
	return sb.String()
}

func truncateOverview(s string) string {
	runes := []rune(s)
	if len(runes) <= maxOverviewRunes {
		return s
	}
	cut := string(runes[:maxOverviewRunes])
	if i := strings.LastIndex(cut, " "); i >= 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// BuildKeyboard puts the watch button alone on the first row when there
// is a link, history and stats side by side below it.
func BuildKeyboard(watchURL string) *Keyboard {
	kb := &Keyboard{}
	if watchURL != "" {
		kb.Rows = append(kb.Rows, []Button{{Text: buttonWatch, URL: watchURL}})
	}
	kb.Rows = append(kb.Rows, []Button{
		{Text: buttonHistory, Data: CallbackHistory},
		{Text: buttonStats, Data: CallbackStats},
	})
	return kb
}

// FormatHistory renders history rows as plain text
func FormatHistory(rows []database.HistoryRow) string {
	if len(rows) == 0 {
		return historyEmptyText
	}

	entries := make([]string, 0, len(rows))
	for i, row := range rows {
		ts := strings.ReplaceAll(row.Timestamp, "T", " ")
		ts = strings.ReplaceAll(ts, "+00:00", " UTC")
		entries = append(entries, fmt.Sprintf("%d) [%s] запрос: %s\n   фильм: %s\n   ссылка: %s",
			i+1, ts, row.Query, orDash(row.Title), orDash(row.URL)))
	}
	return strings.Join(entries, "\n\n")
}

// FormatStats renders the top titles as plain text
func FormatStats(rows []database.StatRow) string {
	if len(rows) == 0 {
		return statsEmptyText
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, statsHeader)
	for i, row := range rows {
		lines = append(lines, fmt.Sprintf("%d) %s — %d", i+1, row.Title, row.Count))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
