package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StartAddFilm 进入添加影片流程
func (h *Handler) StartAddFilm(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermAddFilm)
	if err != nil || !ok {
		return err
	}

	h.States.Begin(message.From.ID, stepFilmCode)
	return h.reply(message.Chat.ID, "🎬 请发送新影片的代码:", utils.CancelKeyboard())
}

// StepFilmCode 接收影片代码，代码已存在时留在本步骤
func (h *Handler) StepFilmCode(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	code := strings.TrimSpace(message.Text)
	if code == "" {
		return h.reply(message.Chat.ID, "❌ 代码不能为空，请重新发送:", nil)
	}

	existing, err := h.DB.GetFilm(code)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ 代码 <code>%s</code> 已被占用，请换一个:", code), nil)
	}

	h.States.Set(message.From.ID, dataFilmCode, code)
	h.States.SetStep(message.From.ID, stepFilmName)
	return h.reply(message.Chat.ID, "📝 请发送影片名称:", nil)
}

// StepFilmName 接收影片名称
func (h *Handler) StepFilmName(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	name := strings.TrimSpace(message.Text)
	if name == "" {
		return h.reply(message.Chat.ID, "❌ 名称不能为空，请重新发送:", nil)
	}

	h.States.Set(message.From.ID, dataFilmName, name)
	h.States.SetStep(message.From.ID, stepFilmDescription)
	return h.reply(message.Chat.ID, "📖 请发送影片简介:", nil)
}

// StepFilmDescription 接收影片简介
func (h *Handler) StepFilmDescription(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	h.States.Set(message.From.ID, dataFilmDescription, strings.TrimSpace(message.Text))
	h.States.SetStep(message.From.ID, stepFilmThumbnail)
	return h.reply(message.Chat.ID, "🖼 请发送影片封面图片:", nil)
}

// StepFilmThumbnail 接收封面图片并落库，完成添加流程
func (h *Handler) StepFilmThumbnail(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	if len(message.Photo) == 0 {
		return h.reply(message.Chat.ID, "❌ 请发送一张图片作为封面:", nil)
	}
	// 取最大分辨率的那张
	thumbnail := message.Photo[len(message.Photo)-1].FileID

	userID := message.From.ID
	code := h.States.Get(userID, dataFilmCode)
	name := h.States.Get(userID, dataFilmName)
	description := h.States.Get(userID, dataFilmDescription)

	if err := h.DB.AddFilm(code, name, description, thumbnail); err != nil {
		h.Log.Error().Err(err).Str("film_code", code).Msg("添加影片失败")
		h.States.Clear(userID)
		return h.reply(message.Chat.ID, "❌ 保存影片失败，请稍后重试。", nil)
	}

	h.States.Clear(userID)
	text := fmt.Sprintf(
		"✅ 影片添加成功！\n\n"+
			"🎬 名称: <b>%s</b>\n"+
			"🔢 代码: <code>%s</code>\n\n"+
			"现在可以通过「%s」为它上传视频。",
		name, code, utils.LabelAddParts)
	return h.replyAdminMenu(message, text)
}

// StartAddParts 进入添加分集流程
func (h *Handler) StartAddParts(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermAddParts)
	if err != nil || !ok {
		return err
	}

	h.States.Begin(message.From.ID, stepPartsCode)
	return h.reply(message.Chat.ID, "🔢 请发送要添加分集的影片代码:", utils.CancelKeyboard())
}

// StepPartsCode 接收影片代码，算出下一集的编号后进入收视频阶段。
// 编号只在进入时计算一次，之后在会话里自增。
func (h *Handler) StepPartsCode(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
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

	count, err := h.DB.GetPartsCount(code)
	if err != nil {
		return err
	}

	userID := message.From.ID
	h.States.Set(userID, dataFilmCode, code)
	h.States.Set(userID, dataCurrentPart, strconv.Itoa(count+1))
	h.States.Set(userID, dataStartCount, strconv.Itoa(count))
	h.States.SetStep(userID, stepPartsVideos)

	return h.reply(message.Chat.ID, fmt.Sprintf(
		"🎬 <b>%s</b>\n当前已有 %d 集。\n\n"+
			"📹 请逐个发送视频，从第 %d 集开始编号。\n"+
			"全部发完后按「%s」结束。",
		film.Name, count, count+1, utils.LabelCancel), nil)
}

// StepPartsVideo 接收一个视频存为当前集，或在取消时结束流程并汇报
func (h *Handler) StepPartsVideo(message *tgbotapi.Message) error {
	userID := message.From.ID
	code := h.States.Get(userID, dataFilmCode)

	if message.Video == nil {
		if isCancel(message) {
			currentPart, _ := strconv.Atoi(h.States.Get(userID, dataCurrentPart))
			startCount, _ := strconv.Atoi(h.States.Get(userID, dataStartCount))
			added := currentPart - startCount - 1

			total, err := h.DB.GetPartsCount(code)
			if err != nil {
				return err
			}

			h.States.Clear(userID)
			text := fmt.Sprintf(
				"✅ 上传结束！\n\n"+
					"📹 本次新增: %d 集\n"+
					"🎬 影片共有: %d 集",
				added, total)
			return h.replyAdminMenu(message, text)
		}
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ 请发送视频，或按「%s」结束。", utils.LabelCancel), nil)
	}

	currentPart, _ := strconv.Atoi(h.States.Get(userID, dataCurrentPart))
	if err := h.DB.AddFilmPart(code, currentPart, message.Video.FileID); err != nil {
		h.Log.Error().Err(err).Str("film_code", code).Int("part", currentPart).Msg("添加分集失败")
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ 第 %d 集保存失败，请重新发送。", currentPart), nil)
	}

	h.States.Set(userID, dataCurrentPart, strconv.Itoa(currentPart+1))
	return h.reply(message.Chat.ID,
		fmt.Sprintf("✅ 第 %d 集已保存，继续发送下一集或按「%s」结束。",
			currentPart, utils.LabelCancel), nil)
}

// StartDeleteFilm 进入删除流程
func (h *Handler) StartDeleteFilm(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermDeleteFilm)
	if err != nil || !ok {
		return err
	}

	h.States.Begin(message.From.ID, stepDeleteCode)
	return h.reply(message.Chat.ID,
		"🗑 请发送要删除的目标:\n\n"+
			"• 发送影片代码删除整部影片，例如 <code>101</code>\n"+
			"• 发送 <code>代码-集数</code> 只删除某一集，例如 <code>101-5</code>",
		utils.CancelKeyboard())
}

// StepDeleteCode 解析删除目标并执行。
// 目标不存在时报错并留在本步骤。
func (h *Handler) StepDeleteCode(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	input := strings.TrimSpace(message.Text)

	if code, partNumber, ok := parseDeleteTarget(input); ok {
		// 删除单集
		film, err := h.DB.GetFilm(code)
		if err != nil {
			return err
		}
		if film == nil {
			return h.reply(message.Chat.ID,
				fmt.Sprintf("❌ 未找到代码为 <code>%s</code> 的影片:", code), nil)
		}

		part, err := h.DB.GetFilmPart(code, partNumber)
		if err != nil {
			return err
		}
		if part == nil {
			return h.reply(message.Chat.ID,
				fmt.Sprintf("❌ 影片 <code>%s</code> 没有第 %d 集:", code, partNumber), nil)
		}

		if err := h.DB.DeleteFilmPart(code, partNumber); err != nil {
			return err
		}

		h.States.Clear(message.From.ID)
		return h.replyAdminMenu(message, fmt.Sprintf(
			"✅ 已删除影片 <b>%s</b> 的第 %d 集。", film.Name, partNumber))
	}

	// 删除整部影片
	film, err := h.DB.GetFilm(input)
	if err != nil {
		return err
	}
	if film == nil {
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ 未找到代码为 <code>%s</code> 的影片:", input), nil)
	}

	if err := h.DB.DeleteFilm(input); err != nil {
		return err
	}

	h.States.Clear(message.From.ID)
	return h.replyAdminMenu(message, fmt.Sprintf(
		"✅ 影片 <b>%s</b> 及其全部分集已删除。", film.Name))
}

// parseDeleteTarget 解析 "代码-集数" 形式的删除目标
func parseDeleteTarget(input string) (code string, partNumber int, ok bool) {
	idx := strings.LastIndex(input, "-")
	if idx <= 0 || idx == len(input)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(input[idx+1:])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return input[:idx], n, true
}

// replyAdminMenu 发送结果文本并附上管理员主菜单
func (h *Handler) replyAdminMenu(message *tgbotapi.Message, text string) error {
	var permissions []string
	if message.From.ID != h.Config.OwnerID {
		admin, err := h.DB.GetAdmin(message.From.ID)
		if err != nil {
			return err
		}
		if admin != nil {
			permissions = admin.Permissions
		} else {
			permissions = []string{}
		}
	}
	return h.reply(message.Chat.ID, text, utils.AdminMainMenu(permissions))
}
