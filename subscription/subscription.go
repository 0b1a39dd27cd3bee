package subscription

import (
	"github.com/forevercoder07/kino-bot/db/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ChannelSource 强制订阅频道列表的来源
type ChannelSource interface {
	GetAllChannels() ([]models.Channel, error)
}

// MemberChecker 查询用户在频道中的成员状态
type MemberChecker interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Gate 订阅检查器。用户必须加入所有强制订阅频道才能使用内容功能。
type Gate struct {
	channels ChannelSource
	bot      MemberChecker
	log      zerolog.Logger
}

// NewGate 创建订阅检查器
func NewGate(channels ChannelSource, bot MemberChecker, log zerolog.Logger) *Gate {
	return &Gate{channels: channels, bot: bot, log: log}
}

// Check 检查用户是否满足所有强制订阅。
// 返回未满足的频道列表，顺序与频道配置顺序一致。
// 单个频道的查询失败（频道被关闭、机器人被移出等）记录日志后
// 按已满足处理，不让一个频道的故障挡住整个检查。
// 没有配置任何频道时所有用户都直接通过。
func (g *Gate) Check(userID int64) (bool, []models.Channel, error) {
	channels, err := g.channels.GetAllChannels()
	if err != nil {
		return false, nil, err
	}

	if len(channels) == 0 {
		return true, nil, nil
	}

	var notSubscribed []models.Channel
	for _, channel := range channels {
		member, err := g.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: channel.ChannelID,
				UserID: userID,
			},
		})
		if err != nil {
			g.log.Warn().Err(err).Int64("channel_id", channel.ChannelID).
				Msg("频道订阅状态查询失败，按已订阅处理")
			continue
		}

		if member.Status == "left" || member.Status == "kicked" {
			notSubscribed = append(notSubscribed, channel)
		}
	}

	return len(notSubscribed) == 0, notSubscribed, nil
}
