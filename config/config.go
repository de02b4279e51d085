package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	BotToken    string
	DatabaseURL string
	RedisAddr   string

	AdminIDs []int64

	// Withdrawal limits, integer Stars
	MinWithdrawalAmount  int
	CommissionRatePct    int
	MinCommission        int
	DailyWithdrawalLimit int

	BroadcastPacingMS int
	CaptionLimit      int

	LogChannelID int64
	LogMode      string

	TestMode bool
}

func Load() *Config {
	minWithdrawal, _ := strconv.Atoi(getEnv("MIN_WITHDRAWAL_AMOUNT", "1000"))
	rate, _ := strconv.Atoi(getEnv("COMMISSION_RATE", "5"))
	minCommission, _ := strconv.Atoi(getEnv("MIN_COMMISSION", "10"))
	dailyLimit, _ := strconv.Atoi(getEnv("DAILY_WITHDRAWAL_LIMIT", "10000"))
	pacing, _ := strconv.Atoi(getEnv("BROADCAST_PACING_MS", "50"))
	captionLimit, _ := strconv.Atoi(getEnv("CAPTION_LIMIT", "1024"))
	logChannel, _ := strconv.ParseInt(getEnv("LOG_CHANNEL_ID", "0"), 10, 64)

	return &Config{
		BotToken:             getEnv("BOT_TOKEN", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		AdminIDs:             parseAdminIDs(getEnv("ADMIN_IDS", "")),
		MinWithdrawalAmount:  minWithdrawal,
		CommissionRatePct:    rate,
		MinCommission:        minCommission,
		DailyWithdrawalLimit: dailyLimit,
		BroadcastPacingMS:    pacing,
		CaptionLimit:         captionLimit,
		LogChannelID:         logChannel,
		LogMode:              getEnv("LOG_MODE", "prod"),
		TestMode:             getEnv("TEST_MODE", "false") == "true",
	}
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
