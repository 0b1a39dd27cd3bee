package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/forevercoder07/kino-bot/db/models"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB 封装数据库连接和操作
type DB struct {
	conn *sql.DB
}

// New 创建一个新的数据库连接并初始化表结构
func New(dsn string, defaultContactLink string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// 设置连接池参数
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(defaultContactLink); err != nil {
		return nil, err
	}

	return db, nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	return db.conn.Close()
}

// init 初始化数据库表结构并写入默认设置
func (db *DB) init(defaultContactLink string) error {
	// 创建用户表
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255),
			full_name VARCHAR(255),
			joined_date TIMESTAMP DEFAULT NOW(),
			is_blocked BOOLEAN DEFAULT FALSE
		)
	`)
	if err != nil {
		return err
	}

	// 创建影片表
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS films (
			id SERIAL PRIMARY KEY,
			code VARCHAR(50) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			thumbnail_file_id VARCHAR(255),
			created_date TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// 创建影片分集表，影片删除时级联删除
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS film_parts (
			id SERIAL PRIMARY KEY,
			film_code VARCHAR(50) REFERENCES films(code) ON DELETE CASCADE,
			part_number INTEGER NOT NULL,
			video_file_id VARCHAR(255) NOT NULL,
			added_date TIMESTAMP DEFAULT NOW(),
			UNIQUE(film_code, part_number)
		)
	`)
	if err != nil {
		return err
	}

	// 创建观看记录表，只追加不修改
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS film_views (
			id SERIAL PRIMARY KEY,
			film_code VARCHAR(50) REFERENCES films(code) ON DELETE CASCADE,
			user_id BIGINT REFERENCES users(user_id) ON DELETE CASCADE,
			viewed_date TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// 创建强制订阅频道表
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS channels (
			id SERIAL PRIMARY KEY,
			channel_id BIGINT UNIQUE NOT NULL,
			channel_username VARCHAR(255),
			channel_title VARCHAR(255),
			added_date TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// 创建管理员表，permissions 以逗号分隔保存
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			user_id BIGINT PRIMARY KEY,
			permissions TEXT NOT NULL DEFAULT '',
			added_by BIGINT,
			added_date TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// 创建设置表
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(255) PRIMARY KEY,
			value TEXT
		)
	`)
	if err != nil {
		return err
	}

	// 写入默认联系管理员链接，已存在时不覆盖
	_, err = db.conn.Exec(`
		INSERT INTO settings (key, value)
		VALUES ('admin_contact_link', $1)
		ON CONFLICT (key) DO NOTHING
	`, defaultContactLink)

	return err
}

// =============== 用户操作 ===============

// UpsertUser 新增用户，已存在时刷新用户名和显示名称
func (db *DB) UpsertUser(userID int64, username, fullName string) error {
	_, err := db.conn.Exec(`
		INSERT INTO users (user_id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET username = $2, full_name = $3
	`, userID, username, fullName)
	return err
}

// GetAllUserIDs 获取所有未屏蔽用户的ID
func (db *DB) GetAllUserIDs() ([]int64, error) {
	rows, err := db.conn.Query(`SELECT user_id FROM users WHERE is_blocked = FALSE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetUsersCount 获取用户总数
func (db *DB) GetUsersCount() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// GetUsersCountByPeriod 获取最近N天内加入的用户数
func (db *DB) GetUsersCountByPeriod(days int) (int, error) {
	dateFrom := time.Now().AddDate(0, 0, -days)

	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE joined_date >= $1
	`, dateFrom).Scan(&count)
	return count, err
}

// GetDailyViews 获取今日观看次数
func (db *DB) GetDailyViews() (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM film_views
		WHERE DATE(viewed_date) = CURRENT_DATE
	`).Scan(&count)
	return count, err
}

// =============== 影片操作 ===============

// AddFilm 新增影片
func (db *DB) AddFilm(code, name, description, thumbnailFileID string) error {
	_, err := db.conn.Exec(`
		INSERT INTO films (code, name, description, thumbnail_file_id)
		VALUES ($1, $2, $3, $4)
	`, code, name, description, thumbnailFileID)
	return err
}

// GetFilm 按编码获取影片，不存在时返回 nil
func (db *DB) GetFilm(code string) (*models.Film, error) {
	var film models.Film
	var description, thumbnail sql.NullString

	err := db.conn.QueryRow(`
		SELECT id, code, name, description, thumbnail_file_id, created_date
		FROM films WHERE code = $1
	`, code).Scan(&film.ID, &film.Code, &film.Name, &description, &thumbnail, &film.CreatedDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	film.Description = description.String
	film.ThumbnailFileID = thumbnail.String

	return &film, nil
}

// DeleteFilm 删除影片，分集和观看记录级联删除
func (db *DB) DeleteFilm(code string) error {
	_, err := db.conn.Exec(`DELETE FROM films WHERE code = $1`, code)
	return err
}

// GetFilmsPaginated 获取一页影片列表和影片总数，按添加时间倒序
func (db *DB) GetFilmsPaginated(offset, limit int) ([]models.Film, int, error) {
	rows, err := db.conn.Query(`
		SELECT code, name FROM films
		ORDER BY created_date DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var films []models.Film
	for rows.Next() {
		var film models.Film
		if err := rows.Scan(&film.Code, &film.Name); err != nil {
			return nil, 0, err
		}
		films = append(films, film)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// 总数每次重新统计，新增影片在下一次渲染时生效
	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM films`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return films, total, nil
}

// =============== 分集操作 ===============

// AddFilmPart 新增影片分集
func (db *DB) AddFilmPart(filmCode string, partNumber int, videoFileID string) error {
	_, err := db.conn.Exec(`
		INSERT INTO film_parts (film_code, part_number, video_file_id)
		VALUES ($1, $2, $3)
	`, filmCode, partNumber, videoFileID)
	return err
}

// GetFilmParts 获取影片的全部分集，按分集序号升序
func (db *DB) GetFilmParts(filmCode string) ([]models.FilmPart, error) {
	rows, err := db.conn.Query(`
		SELECT id, film_code, part_number, video_file_id, added_date
		FROM film_parts
		WHERE film_code = $1
		ORDER BY part_number
	`, filmCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []models.FilmPart
	for rows.Next() {
		var part models.FilmPart
		err := rows.Scan(&part.ID, &part.FilmCode, &part.PartNumber, &part.VideoFileID, &part.AddedDate)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	return parts, rows.Err()
}

// GetFilmPart 获取单个分集，不存在时返回 nil
func (db *DB) GetFilmPart(filmCode string, partNumber int) (*models.FilmPart, error) {
	var part models.FilmPart
	err := db.conn.QueryRow(`
		SELECT id, film_code, part_number, video_file_id, added_date
		FROM film_parts
		WHERE film_code = $1 AND part_number = $2
	`, filmCode, partNumber).Scan(&part.ID, &part.FilmCode, &part.PartNumber, &part.VideoFileID, &part.AddedDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &part, nil
}

// DeleteFilmPart 删除单个分集
func (db *DB) DeleteFilmPart(filmCode string, partNumber int) error {
	_, err := db.conn.Exec(`
		DELETE FROM film_parts
		WHERE film_code = $1 AND part_number = $2
	`, filmCode, partNumber)
	return err
}

// GetPartsCount 获取影片的分集数量
func (db *DB) GetPartsCount(filmCode string) (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM film_parts WHERE film_code = $1
	`, filmCode).Scan(&count)
	return count, err
}

// =============== 观看记录操作 ===============

// AddFilmView 记录一次观看
func (db *DB) AddFilmView(filmCode string, userID int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO film_views (film_code, user_id)
		VALUES ($1, $2)
	`, filmCode, userID)
	return err
}

// GetTopFilms 获取观看次数最多的影片
func (db *DB) GetTopFilms(limit int) ([]models.FilmStat, error) {
	rows, err := db.conn.Query(`
		SELECT f.name, f.code, COUNT(fv.id) as views_count
		FROM films f
		LEFT JOIN film_views fv ON f.code = fv.film_code
		GROUP BY f.code, f.name
		ORDER BY views_count DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.FilmStat
	for rows.Next() {
		var stat models.FilmStat
		if err := rows.Scan(&stat.Name, &stat.Code, &stat.ViewsCount); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// =============== 频道操作 ===============

// AddChannel 新增频道，已存在时刷新用户名和标题
func (db *DB) AddChannel(channelID int64, username, title string) error {
	_, err := db.conn.Exec(`
		INSERT INTO channels (channel_id, channel_username, channel_title)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE
		SET channel_username = $2, channel_title = $3
	`, channelID, username, title)
	return err
}

// DeleteChannel 删除频道
func (db *DB) DeleteChannel(channelID int64) error {
	_, err := db.conn.Exec(`DELETE FROM channels WHERE channel_id = $1`, channelID)
	return err
}

// GetAllChannels 获取全部频道，按添加时间排序保证稳定顺序
func (db *DB) GetAllChannels() ([]models.Channel, error) {
	rows, err := db.conn.Query(`
		SELECT id, channel_id, channel_username, channel_title, added_date
		FROM channels ORDER BY added_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var channel models.Channel
		var username, title sql.NullString
		err := rows.Scan(&channel.ID, &channel.ChannelID, &username, &title, &channel.AddedDate)
		if err != nil {
			return nil, err
		}

		channel.Username = username.String
		channel.Title = title.String

		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

// =============== 管理员操作 ===============

// AddAdmin 新增管理员，已存在时覆盖权限集合
func (db *DB) AddAdmin(userID int64, permissions []string, addedBy int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO admins (user_id, permissions, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET permissions = $2
	`, userID, strings.Join(permissions, ","), addedBy)
	return err
}

// GetAdmin 获取管理员记录，不存在时返回 nil
func (db *DB) GetAdmin(userID int64) (*models.Admin, error) {
	var admin models.Admin
	var permissions string
	var addedBy sql.NullInt64

	err := db.conn.QueryRow(`
		SELECT user_id, permissions, added_by, added_date
		FROM admins WHERE user_id = $1
	`, userID).Scan(&admin.UserID, &permissions, &addedBy, &admin.AddedDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	admin.AddedBy = addedBy.Int64
	admin.Permissions = splitPermissions(permissions)

	return &admin, nil
}

// GetAllAdmins 获取全部管理员
func (db *DB) GetAllAdmins() ([]models.Admin, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, permissions, added_by, added_date
		FROM admins ORDER BY added_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var admin models.Admin
		var permissions string
		var addedBy sql.NullInt64
		err := rows.Scan(&admin.UserID, &permissions, &addedBy, &admin.AddedDate)
		if err != nil {
			return nil, err
		}

		admin.AddedBy = addedBy.Int64
		admin.Permissions = splitPermissions(permissions)

		admins = append(admins, admin)
	}

	return admins, rows.Err()
}

// DeleteAdmin 删除管理员
func (db *DB) DeleteAdmin(userID int64) error {
	_, err := db.conn.Exec(`DELETE FROM admins WHERE user_id = $1`, userID)
	return err
}

// splitPermissions 把逗号分隔的权限字符串还原成集合
func splitPermissions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// =============== 设置操作 ===============

// GetSetting 获取设置值，不存在时返回空字符串
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting 写入设置值，已存在时覆盖
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = $2
	`, key, value)
	return err
}
