package handlers

import (
	"fmt"
	"strings"

	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleStart 处理 /start 命令。
// 未满足订阅要求时发送频道列表，满足后展示用户主菜单。
func (h *Handler) HandleStart(message *tgbotapi.Message) error {
	h.States.Clear(message.From.ID)

	ok, err := h.checkSubscription(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	text := fmt.Sprintf(
		"👋 你好，%s！\n\n"+
			"🎬 欢迎使用影片机器人！\n"+
			"发送影片代码即可获取对应影片。",
		userFullName(message.From))
	return h.reply(message.Chat.ID, text, utils.UserMainMenu())
}

// StartSearchFilm 进入影片搜索流程
func (h *Handler) StartSearchFilm(message *tgbotapi.Message) error {
	ok, err := h.checkSubscription(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	h.States.Begin(message.From.ID, stepSearchCode)
	return h.reply(message.Chat.ID, "🔍 请发送影片代码:", utils.CancelKeyboard())
}

// StepSearchCode 按代码查找并发送影片
func (h *Handler) StepSearchCode(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	ok, err := h.checkSubscription(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	code := strings.TrimSpace(message.Text)
	film, err := h.DB.GetFilm(code)
	if err != nil {
		return err
	}
	if film == nil {
		return h.reply(message.Chat.ID,
			"❌ 未找到该代码对应的影片，请检查后重试:", nil)
	}

	// 内容还没上传完的影片不算命中，留在本步骤等下一个代码
	partsCount, err := h.DB.GetPartsCount(code)
	if err != nil {
		return err
	}
	if partsCount == 0 {
		return h.reply(message.Chat.ID,
			"⚠️ 该影片的内容还没有上传，请换一个代码:", nil)
	}

	h.States.Clear(message.From.ID)
	return h.sendFilm(message.Chat.ID, message.From.ID, film.Code)
}

// sendFilm 发送影片卡片。
// 单集影片直接发送视频并计一次观看；多集影片发送分集选择键盘。
func (h *Handler) sendFilm(chatID, userID int64, code string) error {
	film, err := h.DB.GetFilm(code)
	if err != nil {
		return err
	}
	if film == nil {
		return h.reply(chatID, "❌ 未找到该代码对应的影片！", nil)
	}

	partsCount, err := h.DB.GetPartsCount(code)
	if err != nil {
		return err
	}
	if partsCount == 0 {
		return h.reply(chatID, "⚠️ 该影片暂无可播放内容。", nil)
	}

	caption := utils.FormatFilmInfo(film, partsCount)

	if film.ThumbnailFileID != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(film.ThumbnailFileID))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		if partsCount > 1 {
			photo.ReplyMarkup = utils.FilmPartsKeyboard(partsCount, film.Code)
		}
		if _, err := h.Bot.Send(photo); err != nil {
			return err
		}
	} else {
		msg := tgbotapi.NewMessage(chatID, caption)
		msg.ParseMode = tgbotapi.ModeHTML
		if partsCount > 1 {
			msg.ReplyMarkup = utils.FilmPartsKeyboard(partsCount, film.Code)
		}
		if _, err := h.Bot.Send(msg); err != nil {
			return err
		}
	}

	if partsCount > 1 {
		return nil
	}

	// 单集影片：紧接着发送视频本体
	parts, err := h.DB.GetFilmParts(code)
	if err != nil {
		return err
	}

	video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(parts[0].VideoFileID))
	video.Caption = fmt.Sprintf("🎬 %s", film.Name)
	if _, err := h.Bot.Send(video); err != nil {
		return err
	}

	if err := h.DB.AddFilmView(code, userID); err != nil {
		h.Log.Error().Err(err).Str("film_code", code).Msg("记录观看失败")
	}
	return nil
}

// HandleFilmTop 显示观看次数前20的影片排行
func (h *Handler) HandleFilmTop(message *tgbotapi.Message) error {
	ok, err := h.checkSubscription(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	top, err := h.DB.GetTopFilms(20)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return h.reply(message.Chat.ID, "📊 暂时没有影片数据。", nil)
	}

	var b strings.Builder
	b.WriteString("📊 <b>影片排行榜</b>\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, film := range top {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b>\n      代码: <code>%s</code> | 观看: %s\n",
			prefix, film.Name, film.Code, utils.FormatNumber(film.ViewsCount)))
	}
	return h.reply(message.Chat.ID, b.String(), nil)
}

// HandleContactAdmin 展示管理员联系方式
func (h *Handler) HandleContactAdmin(message *tgbotapi.Message) error {
	ok, err := h.checkSubscription(message)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	link, err := h.DB.GetSetting("admin_contact_link")
	if err != nil {
		return err
	}
	if link == "" {
		link = h.Config.AdminContactLink
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📞 联系管理员", link),
		),
	)
	msg := tgbotapi.NewMessage(message.Chat.ID, "📞 有问题请点下方按钮联系管理员:")
	msg.ReplyMarkup = markup
	_, err = h.Bot.Send(msg)
	return err
}
