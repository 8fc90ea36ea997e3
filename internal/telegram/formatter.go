package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

const (
	maxMessageLen = 4096 // лимит телеграма
	maxSnippetLen = 200
	separator     = "━━━━━━━━━━━━━━━━━━━━━"
)

func FormatWelcome(a *domain.Account) string {
	return fmt.Sprintf("Добро пожаловать! Ваш тариф: <b>%s</b>, доступно запросов: %d.\n\nИспользуйте /help для просмотра доступных команд.",
		a.Plan, a.QueriesRemaining())
}

func FormatSearchResponse(resp *domain.SearchResponse) string {
	var sb strings.Builder

	if resp.Mode == domain.ModeSimple {
		if len(resp.Results) == 0 {
			sb.WriteString("Ничего не найдено.\n")
		} else {
			sb.WriteString(fmt.Sprintf("<b>Результаты:</b> %d\n\n", len(resp.Results)))
			writeItems(&sb, resp.Results)
		}
	} else {
		for _, kw := range resp.Keywords {
			items := resp.ResultsByKeyword[kw]
			sb.WriteString(fmt.Sprintf("<b>%s</b>: %d\n", html.EscapeString(kw), len(items)))
			if len(items) == 0 {
				sb.WriteString("   ничего не найдено\n")
			}
			writeItems(&sb, items)
			sb.WriteString("\n")
		}
	}

	if resp.Partial {
		sb.WriteString("\n<i>Найдено меньше результатов, чем позволяет тариф.</i>\n")
	}

	sb.WriteString(separator + "\n")
	sb.WriteString(formatUsage(resp.PlanType, resp.QueriesUsed, resp.AllowedQueries, resp.QueriesRemaining))
	return sb.String()
}

func FormatPlan(info *domain.PlanInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Тариф:</b> %s\n", info.PlanType))
	sb.WriteString(fmt.Sprintf("Запросов: %d из %d (осталось %d)\n", info.QueriesUsed, info.AllowedQueries, info.QueriesRemaining))
	sb.WriteString(fmt.Sprintf("Результатов на запрос: %d", info.ResultsPerQuery))
	return sb.String()
}

func FormatHistory(records []domain.UsageRecord) string {
	if len(records) == 0 {
		return "История пуста."
	}

	var sb strings.Builder
	sb.WriteString("<b>История запросов:</b>\n\n")
	for i, r := range records {
		sb.WriteString(fmt.Sprintf("%d. %s\n   %s, результатов: %d\n",
			i+1,
			html.EscapeString(r.Query),
			r.CreatedAt.Format("02.01.2006 15:04"),
			r.ResultCount,
		))
	}
	return sb.String()
}

func writeItems(sb *strings.Builder, items []domain.ResultItem) {
	for i, it := range items {
		title := it.Title
		if title == "" {
			title = it.Link
		}

		if it.Link != "" {
			sb.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n", i+1, html.EscapeString(it.Link), html.EscapeString(title)))
		} else {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, html.EscapeString(title)))
		}

		if it.Snippet != "" {
			sb.WriteString("   " + html.EscapeString(truncateText(normalizeSpaces(it.Snippet), maxSnippetLen)) + "\n")
		}
	}
}

func formatUsage(plan domain.PlanType, used, allowed, remaining int) string {
	return fmt.Sprintf("Тариф %s: использовано %d из %d, осталось %d", plan, used, allowed, remaining)
}

// SplitMessage режет по строкам, так теги внутри строки не ломаются.
// Строка длиннее maxLen режется по границе руны.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			messages = append(messages, cur.String())
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > maxLen {
			flush()
			cut := runeBoundary(line, maxLen)
			messages = append(messages, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > maxLen {
			flush()
		}
		cur.WriteString(line)
	}
	flush()

	return messages
}

func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func truncateText(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-3]) + "..."
}
