package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

const (
	msgInternalError = "Произошла ошибка. Попробуйте позже."
	msgSearchUsage   = "Использование: /search запрос | слово1, слово2\nПример: /search кроссовки | красные, синие"
	msgUpgradeUsage  = "Использование: /upgrade тариф [запросов результатов]\nТарифы: free, sub1-sub4, enterprise\nПример: /upgrade enterprise 500 20"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	query, keywords := ParseSearchArgs(msg.Text)
	h.processSearch(ctx, msg, query, keywords)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "search":
		h.handleSearch(ctx, msg)
	case "plan":
		h.handlePlan(ctx, msg)
	case "upgrade":
		h.handleUpgrade(ctx, msg)
	case "history":
		h.handleHistory(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	account, err := h.bot.accounts.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.bot.logger.Error("failed to register account", zap.Error(err))
		h.bot.Send(msg.Chat.ID, msgInternalError)
		return
	}

	h.bot.Send(msg.Chat.ID, FormatWelcome(account))
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := `<b>Доступные команды:</b>

/start - Регистрация (тариф free)
/help - Показать эту справку
/search запрос - Поиск
/plan - Текущий тариф и остаток запросов
/upgrade тариф - Сменить тариф
/history [N] - Последние запросы

<b>Поиск по ключевым словам:</b>
Слова через запятую после "|" ищутся отдельно, каждое со своей выдачей.
Весь такой поиск списывает один запрос.

<b>Примеры:</b>
• golang вакансии
• /search кроссовки | красные, синие
• /upgrade enterprise 500 20`

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleSearch(ctx context.Context, msg *tgbotapi.Message) {
	query, keywords := ParseSearchArgs(msg.CommandArguments())
	if query == "" && keywords == "" {
		h.bot.Send(msg.Chat.ID, msgSearchUsage)
		return
	}
	h.processSearch(ctx, msg, query, keywords)
}

func (h *Handler) processSearch(ctx context.Context, msg *tgbotapi.Message, query, keywords string) {
	if !h.bot.rateLimiter.Allow(msg.From.ID) {
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", h.bot.rateLimiter.ResetTime(msg.From.ID)),
		)
		h.bot.RecordRateLimitHit()
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(domain.ErrRateLimited))
		return
	}

	// первый поиск без /start тоже работает
	if _, err := h.bot.accounts.Register(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.bot.logger.Error("failed to register account", zap.Error(err))
		h.bot.Send(msg.Chat.ID, msgInternalError)
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	resp, err := h.bot.search.Search(ctx, &domain.SearchRequest{
		AccountID: msg.From.ID,
		Query:     query,
		Keywords:  keywords,
	})
	if err != nil {
		h.bot.logger.Warn("search failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	for _, m := range SplitMessage(FormatSearchResponse(resp), maxMessageLen) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) handlePlan(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.bot.accounts.Register(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.bot.Send(msg.Chat.ID, msgInternalError)
		return
	}

	info, err := h.bot.accounts.GetPlan(ctx, msg.From.ID)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, FormatPlan(info))
}

func (h *Handler) handleUpgrade(ctx context.Context, msg *tgbotapi.Message) {
	plan, queries, results, err := ParseUpgradeArgs(msg.CommandArguments())
	if err != nil {
		h.bot.Send(msg.Chat.ID, msgUpgradeUsage)
		return
	}

	if _, err := h.bot.accounts.Register(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.bot.Send(msg.Chat.ID, msgInternalError)
		return
	}

	info, err := h.bot.accounts.ChangePlan(ctx, msg.From.ID, plan, queries, results)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, "Тариф изменен.\n\n"+FormatPlan(info))
}

func (h *Handler) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	limit := ParseHistoryLimit(msg.CommandArguments())

	records, err := h.bot.accounts.History(ctx, msg.From.ID, limit)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	for _, m := range SplitMessage(FormatHistory(records), maxMessageLen) {
		h.bot.Send(msg.Chat.ID, m)
	}
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "Пустой запрос. Укажите, что искать."
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "Лимит запросов исчерпан. Смените тариф: /upgrade"
	case errors.Is(err, domain.ErrInvalidPlan):
		return "Некорректный тариф. Доступны: free, sub1-sub4, enterprise"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "Аккаунт не найден. Используйте /start."
	case errors.Is(err, domain.ErrRateLimited):
		return "Слишком много запросов. Пожалуйста, подождите минуту."
	case errors.Is(err, domain.ErrUsageNotRecorded):
		return "Не удалось учесть запрос. Попробуйте позже."
	case errors.Is(err, context.DeadlineExceeded):
		return "Поиск занял слишком много времени. Попробуйте позже."
	default:
		return msgInternalError
	}
}
