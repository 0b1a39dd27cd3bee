package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StartAddAdmin 进入添加管理员流程，仅限所有者
func (h *Handler) StartAddAdmin(message *tgbotapi.Message) error {
	if message.From.ID != h.Config.OwnerID {
		return h.reply(message.Chat.ID, "❌ 只有机器人所有者可以添加管理员！", nil)
	}

	h.States.Begin(message.From.ID, stepAdminID)
	return h.reply(message.Chat.ID,
		"👨‍💼 请发送新管理员的Telegram数字ID:", utils.CancelKeyboard())
}

// StepAdminID 接收并校验新管理员ID。
// 所有者本人和已有管理员都会被拒绝，流程留在本步骤。
func (h *Handler) StepAdminID(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	adminID, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil {
		return h.reply(message.Chat.ID, "❌ 请发送数字ID:", nil)
	}

	if adminID == h.Config.OwnerID {
		return h.reply(message.Chat.ID, "❌ 所有者不需要添加为管理员:", nil)
	}

	existing, err := h.DB.GetAdmin(adminID)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ <code>%d</code> 已经是管理员了:", adminID), nil)
	}

	h.States.Set(message.From.ID, dataAdminID, strconv.FormatInt(adminID, 10))
	h.States.SetStep(message.From.ID, stepAdminPermissions)
	return h.reply(message.Chat.ID, permissionsPrompt(), nil)
}

// StepAdminPermissions 解析权限代码并落库。
// 解析结果为空时重新提示，流程留在本步骤。
func (h *Handler) StepAdminPermissions(message *tgbotapi.Message) error {
	if isCancel(message) {
		return h.cancelFlow(message)
	}

	perms := auth.ParsePermissions(message.Text)
	if len(perms) == 0 {
		return h.reply(message.Chat.ID,
			"❌ 没有识别到有效的权限代码。\n\n"+permissionsPrompt(), nil)
	}

	userID := message.From.ID
	adminID, _ := strconv.ParseInt(h.States.Get(userID, dataAdminID), 10, 64)

	stored := make([]string, len(perms))
	for i, p := range perms {
		stored[i] = string(p)
	}

	if err := h.DB.AddAdmin(adminID, stored, userID); err != nil {
		return err
	}

	h.States.Clear(userID)

	// 新管理员可能还没跟机器人说过话，通知失败不影响结果
	notice := tgbotapi.NewMessage(adminID,
		"🎉 您已被任命为管理员！发送 /admin 打开管理面板。")
	if _, err := h.Bot.Send(notice); err != nil {
		h.Log.Warn().Err(err).Int64("admin_id", adminID).Msg("通知新管理员失败")
	}

	return h.replyAdminMenu(message, fmt.Sprintf(
		"✅ 管理员添加成功！\n\n"+
			"🆔 ID: <code>%d</code>\n"+
			"🔑 权限: %s",
		adminID, strings.Join(stored, ", ")))
}

// HandleAdminStatistic 列出全部管理员及其权限
func (h *Handler) HandleAdminStatistic(message *tgbotapi.Message) error {
	ok, err := h.checkPermission(message, auth.PermAdminStatistic)
	if err != nil || !ok {
		return err
	}

	admins, err := h.DB.GetAllAdmins()
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return h.reply(message.Chat.ID, "📋 当前没有管理员。", nil)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>管理员列表</b>（共 %d 人）\n\n", len(admins)))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, admin := range admins {
		b.WriteString(fmt.Sprintf(
			"%d. <code>%d</code>\n      权限: %s\n      添加于: %s\n",
			i+1, admin.UserID,
			strings.Join(admin.Permissions, ", "),
			formatDate(admin.AddedDate)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(
				fmt.Sprintf("👨‍💼 %d", admin.UserID),
				fmt.Sprintf("tg://user?id=%d", admin.UserID))))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = h.Bot.Send(msg)
	return err
}

// HandleSetAdminContact 处理 /set_admin_contact 命令，仅限所有者。
// 不带参数时显示用法和当前链接。
func (h *Handler) HandleSetAdminContact(message *tgbotapi.Message) error {
	if message.From.ID != h.Config.OwnerID {
		return nil
	}

	link := strings.TrimSpace(message.CommandArguments())
	if link == "" {
		current, err := h.DB.GetSetting("admin_contact_link")
		if err != nil {
			return err
		}
		if current == "" {
			current = h.Config.AdminContactLink
		}
		return h.reply(message.Chat.ID, fmt.Sprintf(
			"用法: <code>/set_admin_contact https://t.me/xxx</code>\n\n"+
				"当前链接: %s", current), nil)
	}

	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return h.reply(message.Chat.ID,
			"❌ 链接必须以 http:// 或 https:// 开头。", nil)
	}

	if err := h.DB.SetSetting("admin_contact_link", link); err != nil {
		return err
	}
	return h.reply(message.Chat.ID,
		fmt.Sprintf("✅ 管理员联系链接已更新为: %s", link), nil)
}

// HandleDeleteAdmin 处理 /delete_admin 命令，仅限所有者
func (h *Handler) HandleDeleteAdmin(message *tgbotapi.Message) error {
	if message.From.ID != h.Config.OwnerID {
		return nil
	}

	arg := strings.TrimSpace(message.CommandArguments())
	if arg == "" {
		return h.reply(message.Chat.ID,
			"用法: <code>/delete_admin 123456789</code>", nil)
	}

	adminID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return h.reply(message.Chat.ID, "❌ 请提供数字ID。", nil)
	}

	existing, err := h.DB.GetAdmin(adminID)
	if err != nil {
		return err
	}
	if existing == nil {
		return h.reply(message.Chat.ID,
			fmt.Sprintf("❌ <code>%d</code> 不是管理员。", adminID), nil)
	}

	if err := h.DB.DeleteAdmin(adminID); err != nil {
		return err
	}

	notice := tgbotapi.NewMessage(adminID, "ℹ️ 您的管理员权限已被撤销。")
	if _, err := h.Bot.Send(notice); err != nil {
		h.Log.Warn().Err(err).Int64("admin_id", adminID).Msg("通知被删除的管理员失败")
	}

	return h.reply(message.Chat.ID,
		fmt.Sprintf("✅ 管理员 <code>%d</code> 已删除。", adminID), nil)
}

// permissionsPrompt 权限代码说明
func permissionsPrompt() string {
	return "🔑 请发送权限代码，用英文逗号分隔。例如: <code>1,2,5</code>\n\n" +
		"1 — Add film\n" +
		"2 — Add parts\n" +
		"3 — Delete film\n" +
		"4 — Channels\n" +
		"5 — User Statistic\n" +
		"6 — Film Statistic\n" +
		"7 — 全部权限\n" +
		"8 — All write\n" +
		"9 — Add admin\n" +
		"10 — Admin statistic"
}
