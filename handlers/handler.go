package handlers

import (
	"time"

	"github.com/forevercoder07/kino-bot/auth"
	"github.com/forevercoder07/kino-bot/config"
	"github.com/forevercoder07/kino-bot/db/models"
	"github.com/forevercoder07/kino-bot/state"
	"github.com/forevercoder07/kino-bot/subscription"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// 会话步骤标识
const (
	stepFilmCode        = "waiting_film_code"
	stepFilmName        = "waiting_film_name"
	stepFilmDescription = "waiting_film_description"
	stepFilmThumbnail   = "waiting_film_thumbnail"

	stepPartsCode   = "waiting_parts_code"
	stepPartsVideos = "waiting_parts_videos"

	stepDeleteCode = "waiting_delete_code"

	stepChannelAdd    = "waiting_channel_add"
	stepChannelDelete = "waiting_channel_delete"

	stepAdminID          = "waiting_admin_id"
	stepAdminPermissions = "waiting_admin_permissions"

	stepBroadcastContent = "waiting_broadcast_content"

	stepSearchCode = "waiting_search_code"
)

// 会话数据键
const (
	dataFilmCode        = "film_code"
	dataFilmName        = "film_name"
	dataFilmDescription = "film_description"
	dataCurrentPart     = "current_part"
	dataStartCount      = "start_count"
	dataAdminID         = "admin_id"
)

// BotAPI 处理器用到的Telegram接口，*tgbotapi.BotAPI 实现了它
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Store 处理器用到的持久化接口，*db.DB 实现了它
type Store interface {
	UpsertUser(userID int64, username, fullName string) error
	GetAllUserIDs() ([]int64, error)
	GetUsersCount() (int, error)
	GetUsersCountByPeriod(days int) (int, error)
	GetDailyViews() (int, error)

	AddFilm(code, name, description, thumbnailFileID string) error
	GetFilm(code string) (*models.Film, error)
	DeleteFilm(code string) error
	GetFilmsPaginated(offset, limit int) ([]models.Film, int, error)

	AddFilmPart(filmCode string, partNumber int, videoFileID string) error
	GetFilmParts(filmCode string) ([]models.FilmPart, error)
	GetFilmPart(filmCode string, partNumber int) (*models.FilmPart, error)
	DeleteFilmPart(filmCode string, partNumber int) error
	GetPartsCount(filmCode string) (int, error)

	AddFilmView(filmCode string, userID int64) error
	GetTopFilms(limit int) ([]models.FilmStat, error)

	AddChannel(channelID int64, username, title string) error
	DeleteChannel(channelID int64) error
	GetAllChannels() ([]models.Channel, error)

	AddAdmin(userID int64, permissions []string, addedBy int64) error
	GetAdmin(userID int64) (*models.Admin, error)
	GetAllAdmins() ([]models.Admin, error)
	DeleteAdmin(userID int64) error

	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Handler 消息处理器
type Handler struct {
	Bot    BotAPI
	DB     Store
	Config *config.Config
	Auth   *auth.Engine
	Gate   *subscription.Gate
	States *state.Store
	Log    zerolog.Logger
}

// New 创建一个新的处理器
func New(bot BotAPI, store Store, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		Bot:    bot,
		DB:     store,
		Config: cfg,
		Auth:   auth.NewEngine(cfg.OwnerID, store),
		Gate:   subscription.NewGate(store, bot, log),
		States: state.NewStore(),
		Log:    log,
	}
}

// HandleUpdate 处理一次消息更新。
// 同一用户的更新通过用户级互斥锁串行执行，避免会话状态竞争。
func (h *Handler) HandleUpdate(update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		unlock := h.States.Acquire(update.CallbackQuery.From.ID)
		defer unlock()
		return h.HandleCallbackQuery(update.CallbackQuery)
	}

	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	message := update.Message

	unlock := h.States.Acquire(message.From.ID)
	defer unlock()

	// 用户建档，每次联系都刷新用户名和显示名称
	if err := h.DB.UpsertUser(message.From.ID, message.From.UserName, userFullName(message.From)); err != nil {
		h.Log.Error().Err(err).Int64("user_id", message.From.ID).Msg("用户建档失败")
	}

	if message.IsCommand() {
		return h.HandleCommand(message)
	}

	// 菜单按钮优先于进行中的步骤：点按钮等于切换流程，
	// 旧流程积累的数据被直接丢弃
	if intent := utils.IntentFromLabel(message.Text); intent != utils.IntentNone && intent != utils.IntentCancel {
		return h.HandleIntent(message, intent)
	}

	if step := h.States.Step(message.From.ID); step != "" {
		return h.HandleStep(message, step)
	}

	return nil
}

// HandleCommand 处理命令消息
func (h *Handler) HandleCommand(message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return h.HandleStart(message)
	case "admin":
		h.States.Clear(message.From.ID)
		return h.ShowAdminPanel(message)
	case "set_admin_contact":
		return h.HandleSetAdminContact(message)
	case "delete_admin":
		return h.HandleDeleteAdmin(message)
	}
	return nil
}

// HandleIntent 按意图分发菜单操作
func (h *Handler) HandleIntent(message *tgbotapi.Message, intent utils.Intent) error {
	switch intent {
	case utils.IntentSearchFilm:
		return h.StartSearchFilm(message)
	case utils.IntentFilmTop:
		return h.HandleFilmTop(message)
	case utils.IntentContactAdmin:
		return h.HandleContactAdmin(message)
	case utils.IntentUserMainMenu:
		h.States.Clear(message.From.ID)
		return h.reply(message.Chat.ID, "您已回到主菜单:", utils.UserMainMenu())
	case utils.IntentAdminMainMenu:
		h.States.Clear(message.From.ID)
		return h.ShowAdminPanel(message)
	case utils.IntentAddFilm:
		return h.StartAddFilm(message)
	case utils.IntentAddParts:
		return h.StartAddParts(message)
	case utils.IntentDeleteFilm:
		return h.StartDeleteFilm(message)
	case utils.IntentChannels:
		return h.ShowChannelsMenu(message)
	case utils.IntentUserStatistic:
		return h.HandleUserStatistic(message)
	case utils.IntentFilmStatistic:
		return h.HandleFilmStatistic(message)
	case utils.IntentAllWrite:
		return h.StartBroadcast(message)
	case utils.IntentAddAdmin:
		return h.StartAddAdmin(message)
	case utils.IntentAdminStatistic:
		return h.HandleAdminStatistic(message)
	case utils.IntentChannelAdd:
		return h.StartChannelAdd(message)
	case utils.IntentChannelDelete:
		return h.StartChannelDelete(message)
	case utils.IntentChannelList:
		return h.HandleChannelList(message)
	case utils.IntentBack:
		h.States.Clear(message.From.ID)
		return h.ShowAdminPanel(message)
	}
	return nil
}

// HandleStep 把消息交给当前等待的步骤处理
func (h *Handler) HandleStep(message *tgbotapi.Message, step string) error {
	switch step {
	case stepSearchCode:
		return h.StepSearchCode(message)
	case stepFilmCode:
		return h.StepFilmCode(message)
	case stepFilmName:
		return h.StepFilmName(message)
	case stepFilmDescription:
		return h.StepFilmDescription(message)
	case stepFilmThumbnail:
		return h.StepFilmThumbnail(message)
	case stepPartsCode:
		return h.StepPartsCode(message)
	case stepPartsVideos:
		return h.StepPartsVideo(message)
	case stepDeleteCode:
		return h.StepDeleteCode(message)
	case stepChannelAdd:
		return h.StepChannelAdd(message)
	case stepChannelDelete:
		return h.StepChannelDelete(message)
	case stepAdminID:
		return h.StepAdminID(message)
	case stepAdminPermissions:
		return h.StepAdminPermissions(message)
	case stepBroadcastContent:
		return h.StepBroadcastContent(message)
	}
	return nil
}

// ShowAdminPanel 显示管理员主菜单，非管理员静默忽略
func (h *Handler) ShowAdminPanel(message *tgbotapi.Message) error {
	isAdmin, err := h.Auth.IsAdmin(message.From.ID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return nil
	}

	// owner 的权限集合是 nil，菜单显示全部项
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

	text := "👨‍💼 <b>管理面板</b>\n\n" +
		"欢迎，" + userFullName(message.From) + "！"
	return h.reply(message.Chat.ID, text, utils.AdminMainMenu(permissions))
}

// isCancel 检查消息是否是取消按钮。
// 每个步骤处理器都要先做这个检查。
func isCancel(message *tgbotapi.Message) bool {
	return message.Text == utils.LabelCancel
}

// cancelFlow 中止当前流程并回到对应身份的主菜单
func (h *Handler) cancelFlow(message *tgbotapi.Message) error {
	h.States.Clear(message.From.ID)

	isAdmin, err := h.Auth.IsAdmin(message.From.ID)
	if err != nil {
		return err
	}
	if isAdmin {
		return h.ShowAdminPanel(message)
	}
	return h.reply(message.Chat.ID, "您已回到主菜单:", utils.UserMainMenu())
}

// checkPermission 权限检查，未通过时直接告知用户并返回 false
func (h *Handler) checkPermission(message *tgbotapi.Message, perm auth.Permission) (bool, error) {
	ok, err := h.Auth.HasPermission(message.From.ID, perm)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, h.reply(message.Chat.ID, "❌ 您没有权限执行此操作！", nil)
	}
	return true, nil
}

// checkSubscription 订阅检查，未满足时发送频道跳转键盘并返回 false
func (h *Handler) checkSubscription(message *tgbotapi.Message) (bool, error) {
	ok, notSubscribed, err := h.Gate.Check(message.From.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, h.reply(message.Chat.ID,
			"❌ 使用机器人前请先订阅以下频道:",
			utils.ChannelsKeyboard(notSubscribed))
	}
	return true, nil
}

// reply 发送HTML格式消息，markup 为 nil 时不带键盘
func (h *Handler) reply(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := h.Bot.Send(msg)
	return err
}

// userFullName 拼接用户的显示名称
func userFullName(user *tgbotapi.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

// formatDate 统一的日期显示格式
func formatDate(t time.Time) string {
	return t.Format("02.01.2006")
}
