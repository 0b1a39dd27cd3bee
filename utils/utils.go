package utils

import (
	"fmt"
	"strings"

	"github.com/forevercoder07/kino-bot/db/models"
)

// PageSize 影片列表每页的条数
const PageSize = 30

// TotalPages 计算总页数，向上取整
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// FormatNumber 把数字格式化成每三位用空格分隔的形式
func FormatNumber(n int) string {
	s := fmt.Sprintf("%d", n)

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	result := strings.Join(parts, " ")
	if negative {
		result = "-" + result
	}
	return result
}

// FormatFilmInfo 格式化影片信息卡片。
// 卡片用作图片caption，Telegram限制caption不超过1024字符，
// 简介超长时截断。
func FormatFilmInfo(film *models.Film, partsCount int) string {
	info := fmt.Sprintf("🎬 <b>%s</b>\n\n", film.Name)
	info += fmt.Sprintf("📝 <b>简介:</b> %s\n", TruncateText(film.Description, 800))
	info += fmt.Sprintf("🔢 <b>编码:</b> <code>%s</code>\n", film.Code)
	if partsCount > 0 {
		info += fmt.Sprintf("📹 <b>分集数:</b> %d\n", partsCount)
	}
	return info
}

// TruncateText 截断文本，确保不超过最大长度
func TruncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength-3] + "..."
}
