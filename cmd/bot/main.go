package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forevercoder07/kino-bot/config"
	"github.com/forevercoder07/kino-bot/db"
	"github.com/forevercoder07/kino-bot/handlers"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	database, err := db.New(cfg.DatabaseURL, cfg.AdminContactLink)
	if err != nil {
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}
	defer database.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("机器人初始化失败")
	}
	bot.Debug = cfg.Debug
	logger.Info().Str("username", bot.Self.UserName).Msg("机器人已登录")

	handler := handlers.New(bot, database, cfg, logger)

	// 注册 webhook
	webhook, err := tgbotapi.NewWebhook(cfg.WebhookURL + cfg.WebhookPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("构造 webhook 配置失败")
	}
	if _, err := bot.Request(webhook); err != nil {
		logger.Fatal().Err(err).Msg("注册 webhook 失败")
	}
	logger.Info().Str("url", cfg.WebhookURL+cfg.WebhookPath).Msg("webhook 已注册")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Bot is running!")
	})

	e.POST(cfg.WebhookPath, func(c echo.Context) error {
		var update tgbotapi.Update
		if err := c.Bind(&update); err != nil {
			logger.Warn().Err(err).Msg("webhook 请求解析失败")
			return c.NoContent(http.StatusOK)
		}
		if err := handler.HandleUpdate(update); err != nil {
			logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("处理更新失败")
		}
		// 始终应答200，避免Telegram重发同一条更新
		return c.NoContent(http.StatusOK)
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP服务启动失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("收到退出信号，正在关闭...")

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("注销 webhook 失败")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务关闭失败")
	}
	logger.Info().Msg("机器人已停止")
}

// newLogger 控制台日志，非法级别回退到info
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}
