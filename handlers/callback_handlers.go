package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCallbackQuery 处理回调查询
func (h *Handler) HandleCallbackQuery(query *tgbotapi.CallbackQuery) error {
	// 原消息太旧时回调里不带消息，没法编辑或回复，只能静默应答
	if query.Message == nil {
		return h.answer(query.ID, "")
	}

	data := query.Data

	switch {
	case data == "check_subscription":
		return h.handleCheckSubscription(query)
	case strings.HasPrefix(data, "part_"):
		return h.handlePartRequest(query)
	case strings.HasPrefix(data, "films_page_"):
		return h.handleFilmsPage(query)
	case data == "current_page":
		// 页码计数按钮，只应答不动作
		return h.answer(query.ID, "")
	}
	return h.answer(query.ID, "")
}

// handleCheckSubscription 重新检查订阅状态。
// 通过时删除频道列表消息并放行到主菜单，否则弹提示并刷新列表。
func (h *Handler) handleCheckSubscription(query *tgbotapi.CallbackQuery) error {
	ok, notSubscribed, err := h.Gate.Check(query.From.ID)
	if err != nil {
		return err
	}

	if ok {
		if err := h.answer(query.ID, "✅ 订阅检查通过！"); err != nil {
			h.Log.Warn().Err(err).Msg("应答回调失败")
		}
		del := tgbotapi.NewDeleteMessage(query.Message.Chat.ID, query.Message.MessageID)
		if _, err := h.Bot.Request(del); err != nil {
			h.Log.Warn().Err(err).Msg("删除订阅提示消息失败")
		}
		return h.reply(query.Message.Chat.ID,
			"🎬 欢迎使用影片机器人！\n发送影片代码即可获取对应影片。",
			utils.UserMainMenu())
	}

	alert := tgbotapi.NewCallbackWithAlert(query.ID, "❌ 您还没有订阅全部频道！")
	if _, err := h.Bot.Request(alert); err != nil {
		h.Log.Warn().Err(err).Msg("应答回调失败")
	}

	// 刷新列表，只剩未满足的频道
	edit := tgbotapi.NewEditMessageReplyMarkup(
		query.Message.Chat.ID, query.Message.MessageID,
		utils.ChannelsKeyboard(notSubscribed))
	if _, err := h.Bot.Request(edit); err != nil {
		h.Log.Debug().Err(err).Msg("刷新频道键盘失败")
	}
	return nil
}

// handlePartRequest 发送所选的某一集
func (h *Handler) handlePartRequest(query *tgbotapi.CallbackQuery) error {
	// 格式: part_<code>_<n>
	fields := strings.Split(query.Data, "_")
	if len(fields) != 3 {
		return h.answer(query.ID, "")
	}
	code := fields[1]
	partNumber, err := strconv.Atoi(fields[2])
	if err != nil {
		return h.answer(query.ID, "")
	}

	ok, _, err := h.Gate.Check(query.From.ID)
	if err != nil {
		return err
	}
	if !ok {
		alert := tgbotapi.NewCallbackWithAlert(query.ID, "❌ 请先订阅必关注频道！")
		_, err := h.Bot.Request(alert)
		return err
	}

	part, err := h.DB.GetFilmPart(code, partNumber)
	if err != nil {
		return err
	}
	if part == nil {
		alert := tgbotapi.NewCallbackWithAlert(query.ID, "❌ 找不到这一集！")
		_, err := h.Bot.Request(alert)
		return err
	}

	video := tgbotapi.NewVideo(query.Message.Chat.ID, tgbotapi.FileID(part.VideoFileID))
	video.Caption = fmt.Sprintf("📹 第 %d 集", partNumber)
	if _, err := h.Bot.Send(video); err != nil {
		return err
	}

	if err := h.DB.AddFilmView(code, query.From.ID); err != nil {
		h.Log.Error().Err(err).Str("film_code", code).Msg("记录观看失败")
	}

	// 重绘选集键盘，原消息可以反复点选
	if count, err := h.DB.GetPartsCount(code); err == nil && count > 1 {
		edit := tgbotapi.NewEditMessageReplyMarkup(
			query.Message.Chat.ID, query.Message.MessageID,
			utils.FilmPartsKeyboard(count, code))
		if _, err := h.Bot.Request(edit); err != nil {
			h.Log.Debug().Err(err).Msg("重绘选集键盘失败")
		}
	}

	return h.answer(query.ID, fmt.Sprintf("✅ 第 %d 集已发送！", partNumber))
}

// handleFilmsPage 影片列表翻页，原地编辑消息
func (h *Handler) handleFilmsPage(query *tgbotapi.CallbackQuery) error {
	page, err := strconv.Atoi(strings.TrimPrefix(query.Data, "films_page_"))
	if err != nil {
		return h.answer(query.ID, "")
	}

	text, markup, err := h.renderFilmsPage(page)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	if _, err := h.Bot.Request(edit); err != nil {
		h.Log.Debug().Err(err).Msg("翻页编辑失败")
	}
	return h.answer(query.ID, "")
}

// answer 应答回调查询，text 为空时只做静默确认
func (h *Handler) answer(queryID, text string) error {
	callback := tgbotapi.NewCallback(queryID, text)
	_, err := h.Bot.Request(callback)
	return err
}
