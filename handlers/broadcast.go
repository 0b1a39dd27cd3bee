package handlers

import (
	"fmt"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StartBroadcast 进入群发流程
func (h *Handler) StartBroadcast(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermAllWrite)
	if err != nil || !ok {
		return err
	}

	h.States.Begin(message.From.ID, stepBroadcastContent)
	return h.reply(message.Chat.ID,
		"✍️ 请发送要群发的内容。\n\n"+
			"文字、图片、视频都可以，内容会原样转给所有用户。",
		utils.CancelKeyboard())
}

// StepBroadcastContent 把收到的消息群发给所有用户并汇报结果
func (h *Handler) StepBroadcastContent(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	h.States.Clear(message.From.ID)

	status, err := h.Bot.Send(tgbotapi.NewMessage(message.Chat.ID, "📤 正在发送..."))
	if err != nil {
		return err
	}

	success, failed, err := h.broadcast(message.Chat.ID, message.MessageID)
	if err != nil {
		return err
	}

	report := fmt.Sprintf(
		"📤 <b>群发完成</b>\n\n"+
			"✅ 成功: %s\n"+
			"❌ 失败: %s",
		utils.FormatNumber(success), utils.FormatNumber(failed))
	edit := tgbotapi.NewEditMessageText(message.Chat.ID, status.MessageID, report)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = h.Bot.Send(edit)
	return err
}

// broadcast 把一条消息复制给所有未拉黑机器人的用户。
// 单个用户发送失败不中断整体，只计入失败数。
func (h *Handler) broadcast(fromChatID int64, messageID int) (success, failed int, err error) {
	userIDs, err := h.DB.GetAllUserIDs()
	if err != nil {
		return 0, 0, err
	}

	for _, userID := range userIDs {
		msg := tgbotapi.NewCopyMessage(userID, fromChatID, messageID)
		if _, err := h.Bot.CopyMessage(msg); err != nil {
			h.Log.Debug().Err(err).Int64("user_id", userID).Msg("群发单条失败")
			failed++
			continue
		}
		success++
	}

	h.Log.Info().Int("success", success).Int("failed", failed).Msg("群发完成")
	return success, failed, nil
}
