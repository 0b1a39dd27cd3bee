package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 存储机器人的配置信息
type Config struct {
	BotToken         string // Telegram Bot Token
	OwnerID          int64  // 机器人所有者的用户ID，拥有全部权限
	DatabaseURL      string // PostgreSQL连接串
	WebhookURL       string // 对外可访问的webhook基础地址
	WebhookPath      string // webhook路径
	Port             int    // HTTP监听端口
	AdminContactLink string // 默认的联系管理员链接
	LogLevel         string // 日志级别
	Debug            bool   // 是否启用调试模式
}

// Load 从环境变量加载配置，.env 文件存在时先读入
func Load() (*Config, error) {
	// .env 不存在不算错误，生产环境直接用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		WebhookPath:      getEnv("WEBHOOK_PATH", "/webhook"),
		AdminContactLink: getEnv("ADMIN_CONTACT_LINK", "https://t.me/forever_projects"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Debug:            os.Getenv("DEBUG") == "true",
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("缺少环境变量 BOT_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("缺少环境变量 DATABASE_URL")
	}
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("缺少环境变量 WEBHOOK_URL")
	}

	ownerID, err := strconv.ParseInt(os.Getenv("OWNER_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("环境变量 OWNER_ID 无效: %w", err)
	}
	cfg.OwnerID = ownerID

	port, err := strconv.Atoi(getEnv("PORT", "8000"))
	if err != nil {
		return nil, fmt.Errorf("环境变量 PORT 无效: %w", err)
	}
	cfg.Port = port

	return cfg, nil
}

// getEnv 读取环境变量，未设置时返回默认值
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
