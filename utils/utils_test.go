package utils

import (
	"strings"
	"testing"

	"github.com/forevercoder07/kino-bot/db/models"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int
		pageSize int
		want     int
	}{
		{0, 30, 0},
		{-5, 30, 0},
		{1, 30, 1},
		{30, 30, 1},
		{31, 30, 2},
		{65, 30, 3},
		{90, 30, 3},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, TotalPages(tt.total, tt.pageSize),
			"total=%d pageSize=%d", tt.total, tt.pageSize)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1 000"},
		{12345, "12 345"},
		{1234567, "1 234 567"},
		{-12345, "-12 345"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, FormatNumber(tt.n))
	}
}

func TestFormatFilmInfo(t *testing.T) {
	film := &models.Film{Code: "101", Name: "测试影片", Description: "一部测试片"}

	info := FormatFilmInfo(film, 5)
	require.Contains(t, info, "测试影片")
	require.Contains(t, info, "<code>101</code>")
	require.Contains(t, info, "分集数:</b> 5")

	// 没有分集时不显示分集行
	info = FormatFilmInfo(film, 0)
	require.NotContains(t, info, "分集数")
}

func TestFormatFilmInfoTruncatesLongDescription(t *testing.T) {
	film := &models.Film{
		Code:        "101",
		Name:        "长简介影片",
		Description: strings.Repeat("x", 2000),
	}

	// 卡片要能放进Telegram的1024字符caption限制
	info := FormatFilmInfo(film, 1)
	require.Less(t, len(info), 1024)
	require.Contains(t, info, "...")
}

func TestTruncateText(t *testing.T) {
	require.Equal(t, "hello", TruncateText("hello", 10))
	require.Equal(t, "hell...", TruncateText("hello world", 7))
}
