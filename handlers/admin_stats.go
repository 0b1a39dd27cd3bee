package handlers

import (
	"fmt"
	"strings"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleUserStatistic 显示用户规模和观看量统计
func (h *Handler) HandleUserStatistic(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermUserStatistic)
	if err != nil || !ok {
		return err
	}

	total, err := h.DB.GetUsersCount()
	if err != nil {
		return err
	}
	today, err := h.DB.GetUsersCountByPeriod(1)
	if err != nil {
		return err
	}
	week, err := h.DB.GetUsersCountByPeriod(7)
	if err != nil {
		return err
	}
	month, err := h.DB.GetUsersCountByPeriod(30)
	if err != nil {
		return err
	}
	dailyViews, err := h.DB.GetDailyViews()
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👥 <b>用户统计</b>\n\n"+
			"总用户数: <b>%s</b>\n"+
			"今日新增: <b>%s</b>\n"+
			"近7天新增: <b>%s</b>\n"+
			"近30天新增: <b>%s</b>\n\n"+
			"📹 今日观看次数: <b>%s</b>",
		utils.FormatNumber(total),
		utils.FormatNumber(today),
		utils.FormatNumber(week),
		utils.FormatNumber(month),
		utils.FormatNumber(dailyViews))
	return h.reply(message.Chat.ID, text, nil)
}

// HandleFilmStatistic 显示影片列表第一页
func (h *Handler) HandleFilmStatistic(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermFilmStatistic)
	if err != nil || !ok {
		return err
	}

	text, markup, err := h.renderFilmsPage(0)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err = h.Bot.Send(msg)
	return err
}

// renderFilmsPage 渲染影片列表的某一页。
// 总数每次重新统计，页码越界时退回最后一页。
func (h *Handler) renderFilmsPage(page int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if page < 0 {
		page = 0
	}

	films, total, err := h.DB.GetFilmsPaginated(page*utils.PageSize, utils.PageSize)
	if err != nil {
		return "", nil, err
	}
	if total == 0 {
		return "🎞 目前还没有影片。", nil, nil
	}

	totalPages := utils.TotalPages(total, utils.PageSize)
	if page >= totalPages {
		page = totalPages - 1
		films, total, err = h.DB.GetFilmsPaginated(page*utils.PageSize, utils.PageSize)
		if err != nil {
			return "", nil, err
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎞 <b>影片列表</b>（共 %s 部）\n\n", utils.FormatNumber(total)))
	for i, film := range films {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> — <code>%s</code>\n",
			page*utils.PageSize+i+1, film.Name, film.Code))
	}

	if totalPages <= 1 {
		return b.String(), nil, nil
	}
	markup := utils.PaginationKeyboard(page, totalPages, "films")
	return b.String(), &markup, nil
}
