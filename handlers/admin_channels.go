package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ShowChannelsMenu 显示频道管理子菜单
func (h *Handler) ShowChannelsMenu(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermChannels)
	if err != nil || !ok {
		return err
	}

	h.States.Clear(message.From.ID)
	return h.reply(message.Chat.ID, "📢 <b>频道管理</b>\n\n请选择操作:",
		utils.ChannelManagementKeyboard())
}

// StartChannelAdd 进入添加必关注频道流程
func (h *Handler) StartChannelAdd(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermChannels)
	if err != nil || !ok {
		return err
	}

	h.States.Begin(message.From.ID, stepChannelAdd)
	return h.reply(message.Chat.ID,
		"➕ 请发送频道的 @用户名 或数字ID。\n\n"+
			"⚠️ 机器人必须已经是该频道的管理员。",
		utils.CancelKeyboard())
}

// StepChannelAdd 解析频道标识，向Telegram核实后入库。
// 核实失败时报错并留在本步骤。
func (h *Handler) StepChannelAdd(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	input := strings.TrimSpace(message.Text)

	var chatConfig tgbotapi.ChatInfoConfig
	if strings.HasPrefix(input, "@") {
		chatConfig.SuperGroupUsername = input
	} else if id, err := strconv.ParseInt(input, 10, 64); err == nil {
		chatConfig.ChatID = id
	} else {
		return h.reply(message.Chat.ID,
			"❌ 格式不对，请发送 @用户名 或数字ID:", nil)
	}

	chat, err := h.Bot.GetChat(chatConfig)
	if err != nil {
		h.Log.Warn().Err(err).Str("input", input).Msg("获取频道信息失败")
		return h.reply(message.Chat.ID,
			"❌ 无法获取该频道的信息。请确认标识正确且机器人是频道管理员:", nil)
	}

	if err := h.DB.AddChannel(chat.ID, chat.UserName, chat.Title); err != nil {
		return err
	}

	h.States.Clear(message.From.ID)
	return h.reply(message.Chat.ID, fmt.Sprintf(
		"✅ 频道 <b>%s</b> 已加入必关注列表。", chat.Title),
		utils.ChannelManagementKeyboard())
}

// StartChannelDelete 进入删除频道流程
func (h *Handler) StartChannelDelete(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermChannels)
	if err != nil || !ok {
		return err
	}

	channels, err := h.DB.GetAllChannels()
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return h.reply(message.Chat.ID, "📢 当前没有必关注频道。",
			utils.ChannelManagementKeyboard())
	}

	var b strings.Builder
	b.WriteString("🗑 请发送要删除的频道的数字ID:\n\n")
	for i, ch := range channels {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> — <code>%d</code>\n",
			i+1, ch.Title, ch.ChannelID))
	}

	h.States.Begin(message.From.ID, stepChannelDelete)
	return h.reply(message.Chat.ID, b.String(), utils.CancelKeyboard())
}

// StepChannelDelete 按数字ID在频道列表中匹配并删除
func (h *Handler) StepChannelDelete(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	channelID, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil {
		return h.reply(message.Chat.ID, "❌ 请发送频道的数字ID:", nil)
	}

	channels, err := h.DB.GetAllChannels()
	if err != nil {
		return err
	}

	for _, ch := range channels {
		if ch.ChannelID == channelID {
			if err := h.DB.DeleteChannel(ch.ChannelID); err != nil {
				return err
			}
			h.States.Clear(message.From.ID)
			return h.reply(message.Chat.ID, fmt.Sprintf(
				"✅ 频道 <b>%s</b> 已从必关注列表移除。", ch.Title),
				utils.ChannelManagementKeyboard())
		}
	}

	return h.reply(message.Chat.ID,
		"❌ 列表中没有这个ID的频道，请重新发送:", nil)
}

// HandleChannelList 列出全部必关注频道
func (h *Handler) HandleChannelList(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermChannels)
	if err != nil || !ok {
		return err
	}

	channels, err := h.DB.GetAllChannels()
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return h.reply(message.Chat.ID, "📢 当前没有必关注频道。",
			utils.ChannelManagementKeyboard())
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>必关注频道</b>（共 %d 个）\n\n", len(channels)))
	for i, ch := range channels {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, channelLine(ch.Title, ch.Username, ch.ChannelID)))
		b.WriteString(fmt.Sprintf("      添加于: %s\n", formatDate(ch.AddedDate)))
	}
	return h.reply(message.Chat.ID, b.String(), utils.ChannelManagementKeyboard())
}

// channelLine 频道的单行展示
func channelLine(title, username string, channelID int64) string {
	if username != "" {
		return fmt.Sprintf("<b>%s</b> (@%s)\n", title, username)
	}
	return fmt.Sprintf("<b>%s</b> (<code>%d</code>)\n", title, channelID)
}
