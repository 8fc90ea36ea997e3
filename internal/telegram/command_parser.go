package telegram

import (
	"errors"
	"strconv"
	"strings"
)

var errUpgradeUsage = errors.New("usage: /upgrade <plan> [queries results]")

// ParseSearchArgs: "запрос | слово1, слово2" -> (запрос, ключевые слова).
// Без "|" весь текст считается запросом.
func ParseSearchArgs(text string) (query, keywords string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	before, after, found := strings.Cut(text, "|")
	if !found {
		return normalizeSpaces(text), ""
	}
	return normalizeSpaces(before), strings.TrimSpace(after)
}

// ParseUpgradeArgs: "sub1" или "enterprise 500 20"
func ParseUpgradeArgs(args string) (plan string, queries, results int, err error) {
	fields := strings.Fields(args)

	switch len(fields) {
	case 1:
		return fields[0], 0, 0, nil
	case 3:
		queries, err = strconv.Atoi(fields[1])
		if err != nil {
			return "", 0, 0, errUpgradeUsage
		}
		results, err = strconv.Atoi(fields[2])
		if err != nil {
			return "", 0, 0, errUpgradeUsage
		}
		return fields[0], queries, results, nil
	default:
		return "", 0, 0, errUpgradeUsage
	}
}

// ParseHistoryLimit: пустой или кривой аргумент -> 0, сервис подставит свой лимит
func ParseHistoryLimit(args string) int {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
