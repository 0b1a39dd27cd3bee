package handlers

import (
	"errors"
	"strings"
	"testing"

	"github.com/forevercoder07/kino-bot/config"
	"github.com/forevercoder07/kino-bot/db/models"
	"github.com/forevercoder07/kino-bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const ownerID int64 = 100

// fakeBot 记录所有经过Telegram接口的调用
type fakeBot struct {
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	copied     []int64
	failCopyTo map[int64]bool
	chatMember tgbotapi.ChatMember
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 777}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetChat(c tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	return tgbotapi.Chat{ID: -100500, Title: "Test Channel", UserName: "testchan"}, nil
}

func (f *fakeBot) GetChatMember(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return f.chatMember, nil
}

func (f *fakeBot) CopyMessage(c tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
	chatID := c.ChatID
	f.copied = append(f.copied, chatID)
	if f.failCopyTo[chatID] {
		return tgbotapi.MessageID{}, errors.New("blocked by user")
	}
	return tgbotapi.MessageID{MessageID: 1}, nil
}

// lastSentText 取最后一条发送的文字消息内容
func (f *fakeBot) lastSentText(t *testing.T) string {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		switch msg := f.sent[i].(type) {
		case tgbotapi.MessageConfig:
			return msg.Text
		case tgbotapi.EditMessageTextConfig:
			return msg.Text
		}
	}
	t.Fatal("没有发送过文字消息")
	return ""
}

// fakeStore 内存版的持久化层
type fakeStore struct {
	users    map[int64]string
	userIDs  []int64
	films    map[string]*models.Film
	parts    map[string][]models.FilmPart
	views    int
	channels []models.Channel
	admins   map[int64]*models.Admin
	settings map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]string),
		films:    make(map[string]*models.Film),
		parts:    make(map[string][]models.FilmPart),
		admins:   make(map[int64]*models.Admin),
		settings: make(map[string]string),
	}
}

func (f *fakeStore) UpsertUser(userID int64, username, fullName string) error {
	if _, ok := f.users[userID]; !ok {
		f.userIDs = append(f.userIDs, userID)
	}
	f.users[userID] = fullName
	return nil
}

func (f *fakeStore) GetAllUserIDs() ([]int64, error)        { return f.userIDs, nil }
func (f *fakeStore) GetUsersCount() (int, error)            { return len(f.users), nil }
func (f *fakeStore) GetUsersCountByPeriod(int) (int, error) { return len(f.users), nil }
func (f *fakeStore) GetDailyViews() (int, error)            { return f.views, nil }

func (f *fakeStore) AddFilm(code, name, description, thumbnailFileID string) error {
	f.films[code] = &models.Film{Code: code, Name: name, Description: description, ThumbnailFileID: thumbnailFileID}
	return nil
}

func (f *fakeStore) GetFilm(code string) (*models.Film, error) { return f.films[code], nil }

func (f *fakeStore) DeleteFilm(code string) error {
	delete(f.films, code)
	delete(f.parts, code)
	return nil
}

func (f *fakeStore) GetFilmsPaginated(offset, limit int) ([]models.Film, int, error) {
	var all []models.Film
	for _, film := range f.films {
		all = append(all, *film)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) AddFilmPart(filmCode string, partNumber int, videoFileID string) error {
	f.parts[filmCode] = append(f.parts[filmCode], models.FilmPart{
		FilmCode: filmCode, PartNumber: partNumber, VideoFileID: videoFileID,
	})
	return nil
}

func (f *fakeStore) GetFilmParts(filmCode string) ([]models.FilmPart, error) {
	return f.parts[filmCode], nil
}

func (f *fakeStore) GetFilmPart(filmCode string, partNumber int) (*models.FilmPart, error) {
	for _, part := range f.parts[filmCode] {
		if part.PartNumber == partNumber {
			p := part
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteFilmPart(filmCode string, partNumber int) error {
	kept := f.parts[filmCode][:0]
	for _, part := range f.parts[filmCode] {
		if part.PartNumber != partNumber {
			kept = append(kept, part)
		}
	}
	f.parts[filmCode] = kept
	return nil
}

func (f *fakeStore) GetPartsCount(filmCode string) (int, error) {
	return len(f.parts[filmCode]), nil
}

func (f *fakeStore) AddFilmView(string, int64) error { f.views++; return nil }

func (f *fakeStore) GetTopFilms(limit int) ([]models.FilmStat, error) { return nil, nil }

func (f *fakeStore) AddChannel(channelID int64, username, title string) error {
	for i, ch := range f.channels {
		if ch.ChannelID == channelID {
			f.channels[i].Username = username
			f.channels[i].Title = title
			return nil
		}
	}
	f.channels = append(f.channels, models.Channel{ChannelID: channelID, Username: username, Title: title})
	return nil
}

func (f *fakeStore) DeleteChannel(channelID int64) error {
	kept := f.channels[:0]
	for _, ch := range f.channels {
		if ch.ChannelID != channelID {
			kept = append(kept, ch)
		}
	}
	f.channels = kept
	return nil
}

func (f *fakeStore) GetAllChannels() ([]models.Channel, error) { return f.channels, nil }

func (f *fakeStore) AddAdmin(userID int64, permissions []string, addedBy int64) error {
	f.admins[userID] = &models.Admin{UserID: userID, Permissions: permissions, AddedBy: addedBy}
	return nil
}

func (f *fakeStore) GetAdmin(userID int64) (*models.Admin, error) { return f.admins[userID], nil }

func (f *fakeStore) GetAllAdmins() ([]models.Admin, error) {
	var all []models.Admin
	for _, admin := range f.admins {
		all = append(all, *admin)
	}
	return all, nil
}

func (f *fakeStore) DeleteAdmin(userID int64) error {
	delete(f.admins, userID)
	return nil
}

func (f *fakeStore) GetSetting(key string) (string, error) { return f.settings[key], nil }
func (f *fakeStore) SetSetting(key, value string) error    { f.settings[key] = value; return nil }

func newTestHandler(bot *fakeBot, store *fakeStore) *Handler {
	cfg := &config.Config{OwnerID: ownerID, AdminContactLink: "https://t.me/test_admin"}
	return New(bot, store, cfg, zerolog.Nop())
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func videoMessage(userID int64, fileID string) *tgbotapi.Message {
	msg := textMessage(userID, "")
	msg.Video = &tgbotapi.Video{FileID: fileID}
	return msg
}

func TestParseDeleteTarget(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		wantPart int
		wantOK   bool
	}{
		{"101-5", "101", 5, true},
		{"abc-12", "abc", 12, true},
		{"101", "", 0, false},
		{"101-", "", 0, false},
		{"-5", "", 0, false},
		{"101-abc", "", 0, false},
		{"101-0", "", 0, false},
		{"my-film-3", "my-film", 3, true},
	}

	for _, tt := range tests {
		code, part, ok := parseDeleteTarget(tt.input)
		require.Equal(t, tt.wantOK, ok, "input=%q", tt.input)
		require.Equal(t, tt.wantCode, code, "input=%q", tt.input)
		require.Equal(t, tt.wantPart, part, "input=%q", tt.input)
	}
}

func TestDeleteFilmPartFlow(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "测试影片", "", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))
	require.NoError(t, store.AddFilmPart("101", 5, "v5"))

	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepDeleteCode)

	require.NoError(t, h.StepDeleteCode(textMessage(ownerID, "101-5")))

	// 只删指定的那一集，影片本身还在
	part, _ := store.GetFilmPart("101", 5)
	require.Nil(t, part)
	part, _ = store.GetFilmPart("101", 1)
	require.NotNil(t, part)
	film, _ := store.GetFilm("101")
	require.NotNil(t, film)
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestDeleteWholeFilmFlow(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "测试影片", "", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))

	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepDeleteCode)

	require.NoError(t, h.StepDeleteCode(textMessage(ownerID, "101")))

	film, _ := store.GetFilm("101")
	require.Nil(t, film)
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestDeleteUnknownTargetStaysInStep(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepDeleteCode)

	require.NoError(t, h.StepDeleteCode(textMessage(ownerID, "404")))

	// 目标不存在，流程留在原步骤等重新输入
	require.Equal(t, stepDeleteCode, h.States.Step(ownerID))
	require.Contains(t, bot.lastSentText(t), "未找到")
}

func TestAddPartsNumbering(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "测试影片", "", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))
	require.NoError(t, store.AddFilmPart("101", 2, "v2"))
	require.NoError(t, store.AddFilmPart("101", 3, "v3"))

	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepPartsCode)

	// 进入时已有3集，下一集是第4集
	require.NoError(t, h.StepPartsCode(textMessage(ownerID, "101")))
	require.Equal(t, stepPartsVideos, h.States.Step(ownerID))
	require.Equal(t, "4", h.States.Get(ownerID, dataCurrentPart))

	require.NoError(t, h.StepPartsVideo(videoMessage(ownerID, "v4")))
	require.NoError(t, h.StepPartsVideo(videoMessage(ownerID, "v5")))

	part, _ := store.GetFilmPart("101", 4)
	require.NotNil(t, part)
	require.Equal(t, "v4", part.VideoFileID)
	part, _ = store.GetFilmPart("101", 5)
	require.NotNil(t, part)

	// 取消时汇报本次新增2集、共5集
	require.NoError(t, h.StepPartsVideo(textMessage(ownerID, utils.LabelCancel)))
	report := bot.lastSentText(t)
	require.Contains(t, report, "2 集")
	require.Contains(t, report, "5 集")
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestAddPartsReentryRecomputes(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "测试影片", "", ""))

	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepPartsCode)
	require.NoError(t, h.StepPartsCode(textMessage(ownerID, "101")))
	require.NoError(t, h.StepPartsVideo(videoMessage(ownerID, "v1")))
	require.NoError(t, h.StepPartsVideo(textMessage(ownerID, utils.LabelCancel)))

	// 重新进入后编号从已有集数重新计算
	h.States.Begin(ownerID, stepPartsCode)
	require.NoError(t, h.StepPartsCode(textMessage(ownerID, "101")))
	require.Equal(t, "2", h.States.Get(ownerID, dataCurrentPart))
}

func TestAddPartsUnknownFilmStaysInStep(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepPartsCode)

	require.NoError(t, h.StepPartsCode(textMessage(ownerID, "404")))
	require.Equal(t, stepPartsCode, h.States.Step(ownerID))
}

func TestAddFilmDuplicateCodeStaysInStep(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "已有影片", "", ""))

	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepFilmCode)

	require.NoError(t, h.StepFilmCode(textMessage(ownerID, "101")))
	require.Equal(t, stepFilmCode, h.States.Step(ownerID))
	require.Contains(t, bot.lastSentText(t), "已被占用")
}

func TestAddFilmFullFlow(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepFilmCode)

	require.NoError(t, h.StepFilmCode(textMessage(ownerID, "202")))
	require.NoError(t, h.StepFilmName(textMessage(ownerID, "新影片")))
	require.NoError(t, h.StepFilmDescription(textMessage(ownerID, "简介文字")))

	photoMsg := textMessage(ownerID, "")
	photoMsg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	require.NoError(t, h.StepFilmThumbnail(photoMsg))

	film, _ := store.GetFilm("202")
	require.NotNil(t, film)
	require.Equal(t, "新影片", film.Name)
	require.Equal(t, "简介文字", film.Description)
	// 封面取分辨率最大的那张
	require.Equal(t, "large", film.ThumbnailFileID)
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestBroadcastCountsFailures(t *testing.T) {
	bot := &fakeBot{failCopyTo: map[int64]bool{3: true, 6: true, 9: true}}
	store := newFakeStore()
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, store.UpsertUser(i, "", "u"))
	}

	h := newTestHandler(bot, store)
	success, failed, err := h.broadcast(ownerID, 55)
	require.NoError(t, err)
	require.Equal(t, 7, success)
	require.Equal(t, 3, failed)
	// 失败不会中断，所有用户都被尝试
	require.Len(t, bot.copied, 10)
}

func TestBroadcastFlowReportsResult(t *testing.T) {
	bot := &fakeBot{failCopyTo: map[int64]bool{2: true}}
	store := newFakeStore()
	require.NoError(t, store.UpsertUser(1, "", "a"))
	require.NoError(t, store.UpsertUser(2, "", "b"))

	h := newTestHandler(bot, store)
	h.States.Begin(ownerID, stepBroadcastContent)

	require.NoError(t, h.StepBroadcastContent(textMessage(ownerID, "公告内容")))

	report := bot.lastSentText(t)
	require.Contains(t, report, "成功: 1")
	require.Contains(t, report, "失败: 1")
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestCancelClearsState(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepFilmName)
	h.States.Set(ownerID, dataFilmCode, "101")

	require.NoError(t, h.StepFilmName(textMessage(ownerID, utils.LabelCancel)))
	require.Equal(t, "", h.States.Step(ownerID))
	require.Equal(t, "", h.States.Get(ownerID, dataFilmCode))
}

func TestStepAdminIDRejectsOwnerAndExisting(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddAdmin(200, []string{"Add film"}, ownerID))

	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepAdminID)
	require.NoError(t, h.StepAdminID(textMessage(ownerID, "100")))
	require.Equal(t, stepAdminID, h.States.Step(ownerID))

	require.NoError(t, h.StepAdminID(textMessage(ownerID, "200")))
	require.Equal(t, stepAdminID, h.States.Step(ownerID))

	require.NoError(t, h.StepAdminID(textMessage(ownerID, "不是数字")))
	require.Equal(t, stepAdminID, h.States.Step(ownerID))

	require.NoError(t, h.StepAdminID(textMessage(ownerID, "300")))
	require.Equal(t, stepAdminPermissions, h.States.Step(ownerID))
}

func TestStepAdminPermissionsEmptyReprompts(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepAdminID)
	require.NoError(t, h.StepAdminID(textMessage(ownerID, "300")))

	// 无法识别的编码全被丢弃，重新提示
	require.NoError(t, h.StepAdminPermissions(textMessage(ownerID, "99,100")))
	require.Equal(t, stepAdminPermissions, h.States.Step(ownerID))
	admin, _ := store.GetAdmin(300)
	require.Nil(t, admin)

	require.NoError(t, h.StepAdminPermissions(textMessage(ownerID, "1,7,2")))
	admin, _ = store.GetAdmin(300)
	require.NotNil(t, admin)
	// 哨兵编码折叠成全部权限
	require.Equal(t, []string{"all"}, admin.Permissions)
	require.Equal(t, ownerID, admin.AddedBy)
}

func TestHandleUpdateMenuBeatsStep(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	// 流程进行中点了别的菜单按钮，旧流程被顶替
	h.States.Begin(ownerID, stepFilmName)
	h.States.Set(ownerID, dataFilmCode, "101")

	update := tgbotapi.Update{Message: textMessage(ownerID, utils.LabelAddParts)}
	require.NoError(t, h.HandleUpdate(update))

	require.Equal(t, stepPartsCode, h.States.Step(ownerID))
	require.Equal(t, "", h.States.Get(ownerID, dataFilmCode))
}

func TestHandleUpdateCancelRoutesToStep(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepFilmName)

	// 取消按钮不走菜单分发，落到步骤处理器里才能结束流程
	update := tgbotapi.Update{Message: textMessage(ownerID, utils.LabelCancel)}
	require.NoError(t, h.HandleUpdate(update))
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestHandleUpdateUpsertsUser(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	update := tgbotapi.Update{Message: textMessage(42, "随便一句话")}
	require.NoError(t, h.HandleUpdate(update))

	require.Contains(t, store.users, int64(42))
}

func TestAdminCommandSilentForNonAdmin(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	msg := textMessage(42, "/admin")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/admin")}}
	require.NoError(t, h.HandleUpdate(tgbotapi.Update{Message: msg}))

	// 非管理员的 /admin 没有任何回应
	require.Empty(t, bot.sent)
}

func TestPermissionDeniedMessage(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddAdmin(200, []string{"Channels"}, ownerID))

	h := newTestHandler(bot, store)

	// 只有频道权限的管理员点添加影片
	require.NoError(t, h.StartAddFilm(textMessage(200, utils.LabelAddFilm)))
	require.Contains(t, bot.lastSentText(t), "没有权限")
	require.Equal(t, "", h.States.Step(200))
}

func TestStartAddAdminOwnerOnly(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddAdmin(200, []string{"all"}, ownerID))

	h := newTestHandler(bot, store)

	// 即使持有全部权限也不能添加管理员
	require.NoError(t, h.StartAddAdmin(textMessage(200, utils.LabelAddAdmin)))
	require.Equal(t, "", h.States.Step(200))
	require.Contains(t, bot.lastSentText(t), "所有者")

	require.NoError(t, h.StartAddAdmin(textMessage(ownerID, utils.LabelAddAdmin)))
	require.Equal(t, stepAdminID, h.States.Step(ownerID))
}

func TestChannelAddFlow(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	h.States.Begin(ownerID, stepChannelAdd)
	require.NoError(t, h.StepChannelAdd(textMessage(ownerID, "@testchan")))

	channels, _ := store.GetAllChannels()
	require.Len(t, channels, 1)
	require.Equal(t, int64(-100500), channels[0].ChannelID)
	require.Equal(t, "testchan", channels[0].Username)
	require.Equal(t, "", h.States.Step(ownerID))
}

func TestChannelDeleteByID(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddChannel(-100, "alpha", "Alpha"))
	require.NoError(t, store.AddChannel(-200, "", "Beta"))

	h := newTestHandler(bot, store)

	// 只接受数字ID，@用户名不算有效输入
	h.States.Begin(ownerID, stepChannelDelete)
	require.NoError(t, h.StepChannelDelete(textMessage(ownerID, "@alpha")))
	channels, _ := store.GetAllChannels()
	require.Len(t, channels, 2)
	require.Equal(t, stepChannelDelete, h.States.Step(ownerID))

	require.NoError(t, h.StepChannelDelete(textMessage(ownerID, "-100")))
	channels, _ = store.GetAllChannels()
	require.Len(t, channels, 1)
	require.Equal(t, "Beta", channels[0].Title)

	// 没有这个ID的频道，流程留在原步骤
	h.States.Begin(ownerID, stepChannelDelete)
	require.NoError(t, h.StepChannelDelete(textMessage(ownerID, "-999")))
	channels, _ = store.GetAllChannels()
	require.Len(t, channels, 1)
	require.Equal(t, stepChannelDelete, h.States.Step(ownerID))
}

func TestSetAdminContact(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	msg := textMessage(ownerID, "/set_admin_contact ftp://bad")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/set_admin_contact")}}
	require.NoError(t, h.HandleSetAdminContact(msg))
	link, _ := store.GetSetting("admin_contact_link")
	require.Equal(t, "", link)

	msg = textMessage(ownerID, "/set_admin_contact https://t.me/new_admin")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/set_admin_contact")}}
	require.NoError(t, h.HandleSetAdminContact(msg))
	link, _ = store.GetSetting("admin_contact_link")
	require.Equal(t, "https://t.me/new_admin", link)

	// 非所有者静默忽略
	msg = textMessage(200, "/set_admin_contact https://t.me/evil")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/set_admin_contact")}}
	require.NoError(t, h.HandleSetAdminContact(msg))
	link, _ = store.GetSetting("admin_contact_link")
	require.Equal(t, "https://t.me/new_admin", link)
}

func TestSearchFilmNotFoundStaysInStep(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	h.States.Begin(42, stepSearchCode)
	require.NoError(t, h.StepSearchCode(textMessage(42, "404")))
	require.Equal(t, stepSearchCode, h.States.Step(42))
}

func TestSearchFilmBlockedWithoutSubscription(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "left"}}
	store := newFakeStore()
	require.NoError(t, store.AddChannel(-100, "chan", "Chan"))
	require.NoError(t, store.AddFilm("101", "影片", "", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))

	h := newTestHandler(bot, store)

	h.States.Begin(42, stepSearchCode)
	require.NoError(t, h.StepSearchCode(textMessage(42, "101")))

	// 订阅未满足时不发影片，观看数不增加
	require.Equal(t, 0, store.views)
	require.Contains(t, bot.lastSentText(t), "订阅")
}

func TestSearchFilmZeroPartsKeepsStep(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "影片", "简介", "thumb"))

	h := newTestHandler(bot, store)

	h.States.Begin(42, stepSearchCode)
	require.NoError(t, h.StepSearchCode(textMessage(42, "101")))

	// 内容还没上传：只发提示不发卡片，流程留在原步骤等下一个代码
	require.Equal(t, stepSearchCode, h.States.Step(42))
	require.Equal(t, 0, store.views)
	require.Len(t, bot.sent, 1)
	require.Contains(t, bot.lastSentText(t), "还没有上传")
	for _, c := range bot.sent {
		_, ok := c.(tgbotapi.PhotoConfig)
		require.False(t, ok)
	}
}

func TestSearchFilmDeliversSinglePart(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "影片", "简介", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))

	h := newTestHandler(bot, store)

	h.States.Begin(42, stepSearchCode)
	require.NoError(t, h.StepSearchCode(textMessage(42, "101")))

	// 单集影片直接发视频并计一次观看
	require.Equal(t, 1, store.views)
	require.Equal(t, "", h.States.Step(42))

	var sentVideo bool
	for _, c := range bot.sent {
		if _, ok := c.(tgbotapi.VideoConfig); ok {
			sentVideo = true
		}
	}
	require.True(t, sentVideo)
}

func TestMultiPartFilmSendsKeyboardOnly(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "剧集", "简介", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))
	require.NoError(t, store.AddFilmPart("101", 2, "v2"))

	h := newTestHandler(bot, store)

	h.States.Begin(42, stepSearchCode)
	require.NoError(t, h.StepSearchCode(textMessage(42, "101")))

	// 多集影片只发卡片和分集键盘，观看计在选集时
	require.Equal(t, 0, store.views)
	for _, c := range bot.sent {
		_, ok := c.(tgbotapi.VideoConfig)
		require.False(t, ok)
	}
}

func TestCallbackPartDelivery(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "剧集", "", ""))
	require.NoError(t, store.AddFilmPart("101", 2, "v2"))

	h := newTestHandler(bot, store)

	query := &tgbotapi.CallbackQuery{
		ID:   "q1",
		From: &tgbotapi.User{ID: 42},
		Data: "part_101_2",
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: 42},
		},
	}
	require.NoError(t, h.HandleCallbackQuery(query))

	require.Equal(t, 1, store.views)
	var sentVideo bool
	for _, c := range bot.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok {
			sentVideo = true
			require.Contains(t, v.Caption, "2")
		}
	}
	require.True(t, sentVideo)
}

func TestCallbackMissingPartAlerts(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	h := newTestHandler(bot, store)

	query := &tgbotapi.CallbackQuery{
		ID:   "q1",
		From: &tgbotapi.User{ID: 42},
		Data: "part_404_1",
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: 42},
		},
	}
	require.NoError(t, h.HandleCallbackQuery(query))
	require.Equal(t, 0, store.views)
	require.Empty(t, bot.sent)
}

func TestCallbackWithoutMessage(t *testing.T) {
	bot := &fakeBot{chatMember: tgbotapi.ChatMember{Status: "member"}}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("101", "剧集", "", ""))
	require.NoError(t, store.AddFilmPart("101", 1, "v1"))

	h := newTestHandler(bot, store)

	// 原消息太旧时回调不带消息，静默应答而不是崩溃
	query := &tgbotapi.CallbackQuery{
		ID:   "q1",
		From: &tgbotapi.User{ID: 42},
		Data: "part_101_1",
	}
	require.NoError(t, h.HandleCallbackQuery(query))

	require.Empty(t, bot.sent)
	require.Equal(t, 0, store.views)
	require.Len(t, bot.requests, 1)
}

func TestRenderFilmsPageClampsOverflow(t *testing.T) {
	bot := &fakeBot{}
	store := newFakeStore()
	require.NoError(t, store.AddFilm("1", "A", "", ""))
	require.NoError(t, store.AddFilm("2", "B", "", ""))

	h := newTestHandler(bot, store)

	// 页码越界退回最后一页
	text, _, err := h.renderFilmsPage(99)
	require.NoError(t, err)
	require.Contains(t, text, "影片列表")
	require.True(t, strings.Contains(text, "A") || strings.Contains(text, "B"))
}
