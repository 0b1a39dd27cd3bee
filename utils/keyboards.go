package utils

import (
	"fmt"
	"strconv"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/db/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Intent 按钮对应的操作意图。处理器只认意图，
// 按钮文字到意图的映射由本层持有。
type Intent int

const (
	IntentNone Intent = iota
	IntentSearchFilm
	IntentFilmTop
	IntentContactAdmin
	IntentUserMainMenu
	IntentAdminMainMenu
	IntentAddFilm
	IntentAddParts
	IntentDeleteFilm
	IntentChannels
	IntentUserStatistic
	IntentFilmStatistic
	IntentAllWrite
	IntentAddAdmin
	IntentAdminStatistic
	IntentChannelAdd
	IntentChannelDelete
	IntentChannelList
	IntentBack
	IntentCancel
)

// 按钮文字
const (
	LabelSearchFilm     = "🎬 搜索影片"
	LabelFilmTop        = "📊 影片排行"
	LabelContactAdmin   = "📞 联系管理员"
	LabelUserMainMenu   = "🏠 主菜单"
	LabelAdminMainMenu  = "🏠 Main menu"
	LabelAddFilm        = "➕ Add film"
	LabelAddParts       = "📹 Add parts"
	LabelDeleteFilm     = "🗑 Delete film"
	LabelChannels       = "📢 Channels"
	LabelUserStatistic  = "👥 User Statistic"
	LabelFilmStatistic  = "🎞 Film Statistic"
	LabelAllWrite       = "✍️ All write"
	LabelAddAdmin       = "👨‍💼 Add admin"
	LabelAdminStatistic = "📋 Admin statistic"
	LabelChannelAdd     = "➕ 添加频道"
	LabelChannelDelete  = "🗑 删除频道"
	LabelChannelList    = "📋 频道列表"
	LabelBack           = "🔙 返回"
	LabelCancel         = "❌ 取消"
)

// labelToIntent 按钮文字到意图的映射
var labelToIntent = map[string]Intent{
	LabelSearchFilm:     IntentSearchFilm,
	LabelFilmTop:        IntentFilmTop,
	LabelContactAdmin:   IntentContactAdmin,
	LabelUserMainMenu:   IntentUserMainMenu,
	LabelAdminMainMenu:  IntentAdminMainMenu,
	LabelAddFilm:        IntentAddFilm,
	LabelAddParts:       IntentAddParts,
	LabelDeleteFilm:     IntentDeleteFilm,
	LabelChannels:       IntentChannels,
	LabelUserStatistic:  IntentUserStatistic,
	LabelFilmStatistic:  IntentFilmStatistic,
	LabelAllWrite:       IntentAllWrite,
	LabelAddAdmin:       IntentAddAdmin,
	LabelAdminStatistic: IntentAdminStatistic,
	LabelChannelAdd:     IntentChannelAdd,
	LabelChannelDelete:  IntentChannelDelete,
	LabelChannelList:    IntentChannelList,
	LabelBack:           IntentBack,
	LabelCancel:         IntentCancel,
}

// IntentFromLabel 把按钮文字解码成意图，不认识的文字返回 IntentNone
func IntentFromLabel(text string) Intent {
	return labelToIntent[text]
}

// UserMainMenu 用户主菜单
func UserMainMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelSearchFilm),
			tgbotapi.NewKeyboardButton(LabelFilmTop),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelContactAdmin),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// BackToMenu 只有返回主菜单按钮的键盘
func BackToMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelUserMainMenu),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// CancelKeyboard 只有取消按钮的键盘
func CancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelCancel),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// hasMenuPermission 判断菜单项是否对持有的权限集合可见。
// 兼容以数字编码保存的旧记录。
func hasMenuPermission(permissions []string, perm auth.Permission) bool {
	if auth.ContainsPermission(permissions, perm) {
		return true
	}
	for _, p := range permissions {
		if p == perm.Code() {
			return true
		}
	}
	return false
}

// AdminMainMenu 管理员主菜单，按权限集合过滤菜单项。
// permissions 为 nil 表示 owner，显示全部菜单。
func AdminMainMenu(permissions []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton

	if permissions == nil || auth.HasAll(permissions) {
		rows = [][]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelAddFilm), tgbotapi.NewKeyboardButton(LabelAddParts)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelDeleteFilm), tgbotapi.NewKeyboardButton(LabelChannels)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelUserStatistic), tgbotapi.NewKeyboardButton(LabelFilmStatistic)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelAllWrite), tgbotapi.NewKeyboardButton(LabelAddAdmin)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelAdminStatistic), tgbotapi.NewKeyboardButton(LabelAdminMainMenu)),
		}
	} else {
		entries := []struct {
			perm  auth.Permission
			label string
		}{
			{auth.PermAddFilm, LabelAddFilm},
			{auth.PermAddParts, LabelAddParts},
			{auth.PermDeleteFilm, LabelDeleteFilm},
			{auth.PermChannels, LabelChannels},
			{auth.PermUserStatistic, LabelUserStatistic},
			{auth.PermFilmStatistic, LabelFilmStatistic},
			{auth.PermAllWrite, LabelAllWrite},
			{auth.PermAddAdmin, LabelAddAdmin},
			{auth.PermAdminStatistic, LabelAdminStatistic},
		}

		var row []tgbotapi.KeyboardButton
		for _, entry := range entries {
			if !hasMenuPermission(permissions, entry.perm) {
				continue
			}
			row = append(row, tgbotapi.NewKeyboardButton(entry.label))
			if len(row) == 2 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}

		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(LabelAdminMainMenu)))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// ChannelManagementKeyboard 频道管理子菜单
func ChannelManagementKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelChannelAdd),
			tgbotapi.NewKeyboardButton(LabelChannelDelete),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelChannelList),
			tgbotapi.NewKeyboardButton(LabelBack),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// FilmPartsKeyboard 分集选择键盘，每行三个按钮
func FilmPartsKeyboard(partsCount int, filmCode string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for i := 1; i <= partsCount; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("📹 第%d集", i),
			fmt.Sprintf("part_%s_%d", filmCode, i),
		))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ChannelsKeyboard 未订阅频道的跳转键盘，末行是检查订阅按钮
func ChannelsKeyboard(channels []models.Channel) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for idx, channel := range channels {
		name := channel.Title
		if name == "" {
			name = channel.Username
		}
		if name == "" {
			name = fmt.Sprintf("频道 %d", idx+1)
		}

		var url string
		if channel.Username != "" {
			url = fmt.Sprintf("https://t.me/%s", channel.Username)
		} else {
			// 私有频道没有用户名，用内部链接格式，去掉 -100 前缀
			id := strconv.FormatInt(channel.ChannelID, 10)
			if len(id) > 4 {
				id = id[4:]
			}
			url = fmt.Sprintf("https://t.me/c/%s/1", id)
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(fmt.Sprintf("%d. %s", idx+1, name), url),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ 检查订阅", "check_subscription"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PaginationKeyboard 翻页键盘，页码从0开始
func PaginationKeyboard(currentPage, totalPages int, prefix string) tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton

	if currentPage > 0 {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			"◀️ 上一页",
			fmt.Sprintf("%s_page_%d", prefix, currentPage-1),
		))
	}

	buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		"current_page",
	))

	if currentPage < totalPages-1 {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			"下一页 ▶️",
			fmt.Sprintf("%s_page_%d", prefix, currentPage+1),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}
