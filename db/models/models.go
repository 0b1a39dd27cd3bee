package models

import (
	"time"
)

// User 表示一个机器人用户
type User struct {
	UserID     int64     `db:"user_id"`     // Telegram用户ID
	Username   string    `db:"username"`    // 用户名，可能为空
	FullName   string    `db:"full_name"`   // 显示名称，可能为空
	JoinedDate time.Time `db:"joined_date"` // 首次使用时间
	IsBlocked  bool      `db:"is_blocked"`  // 是否已屏蔽机器人
}

// Film 表示一部影片，code 是用户检索用的唯一编码
type Film struct {
	ID              int64     `db:"id"`
	Code            string    `db:"code"`              // 影片编码，唯一
	Name            string    `db:"name"`              // 影片名称
	Description     string    `db:"description"`       // 影片简介
	ThumbnailFileID string    `db:"thumbnail_file_id"` // 封面图file_id，可能为空
	CreatedDate     time.Time `db:"created_date"`      // 添加时间
}

// FilmPart 表示影片的一个分集
type FilmPart struct {
	ID          int64     `db:"id"`
	FilmCode    string    `db:"film_code"`     // 所属影片编码
	PartNumber  int       `db:"part_number"`   // 分集序号，同一影片内唯一
	VideoFileID string    `db:"video_file_id"` // 视频file_id
	AddedDate   time.Time `db:"added_date"`    // 添加时间
}

// FilmStat 影片观看次数统计的聚合结果
type FilmStat struct {
	Name       string // 影片名称
	Code       string // 影片编码
	ViewsCount int    // 累计观看次数
}

// Channel 表示一个强制订阅频道
type Channel struct {
	ID        int64     `db:"id"`
	ChannelID int64     `db:"channel_id"`       // 频道ID，唯一
	Username  string    `db:"channel_username"` // 频道用户名，可能为空
	Title     string    `db:"channel_title"`    // 频道标题，可能为空
	AddedDate time.Time `db:"added_date"`       // 添加时间
}

// Admin 表示一个管理员记录，owner 永远不会出现在这张表里
type Admin struct {
	UserID      int64     `db:"user_id"`     // 管理员用户ID
	Permissions []string  `db:"permissions"` // 权限集合，"all" 表示全部权限
	AddedBy     int64     `db:"added_by"`    // 授权人ID
	AddedDate   time.Time `db:"added_date"`  // 授权时间
}
