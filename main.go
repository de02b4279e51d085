package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lessonbot/broadcast"
	"lessonbot/catalog"
	"lessonbot/config"
	"lessonbot/database"
	"lessonbot/fsm"
	"lessonbot/handlers"
	"lessonbot/identity"
	"lessonbot/logger"
	"lessonbot/payments"
	"lessonbot/support"
	"lessonbot/telegram"
	"lessonbot/texts"
	"lessonbot/tglog"
	"lessonbot/withdrawal"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN не установлен")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL не установлен")
	}

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("подключение к базе", zap.Error(err))
	}
	defer db.Pool.Close()

	var states fsm.Store
	if cfg.RedisAddr != "" {
		rs, err := fsm.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			zlog.Fatal("подключение к redis", zap.Error(err))
		}
		states = rs
		zlog.Info("состояния диалогов в redis", zap.String("addr", cfg.RedisAddr))
	} else {
		states = fsm.NewMemoryStore()
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		zlog.Fatal("создание бота", zap.Error(err))
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		zlog.Fatal("getMe", zap.Error(err))
	}
	zlog.Info("бот запускается", zap.String("username", me.Username))

	egress := telegram.NewClient(b, cfg.CaptionLimit)
	tglog.Init(egress, cfg.LogChannelID)

	textsSvc := texts.New(db)
	if err := textsSvc.InitializeDefaults(ctx); err != nil {
		zlog.Fatal("загрузка текстов по умолчанию", zap.Error(err))
	}

	identitySvc := identity.New(db)
	if err := identitySvc.SeedAdmins(ctx, cfg.AdminIDs); err != nil {
		zlog.Fatal("регистрация админов", zap.Error(err))
	}

	h := handlers.New(handlers.Deps{
		Bot:      b,
		Cfg:      cfg,
		Egress:   egress,
		States:   states,
		Log:      zlog,
		Identity: identitySvc,
		Catalog:  catalog.New(db),
		Texts:    textsSvc,
		Payments: payments.New(db),
		Support:  support.New(db),
		Broadcasts: broadcast.New(db, broadcast.NewEgress(egress),
			time.Duration(cfg.BroadcastPacingMS)*time.Millisecond, zlog),
		Withdrawals: withdrawal.New(db, withdrawal.Config{
			MinWithdrawal: cfg.MinWithdrawalAmount,
			RatePct:       cfg.CommissionRatePct,
			MinCommission: cfg.MinCommission,
			DailyLimit:    cfg.DailyWithdrawalLimit,
		}),
		Provider: withdrawal.ManualProvider{},
		Stats:    db,
	})

	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.OnMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.OnCallback)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil && update.Message.Text == "" && update.Message.SuccessfulPayment == nil
	}, h.OnMessage)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil && update.Message.SuccessfulPayment != nil
	}, h.OnMessage)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.PreCheckoutQuery != nil
	}, h.OnPreCheckout)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.ChatJoinRequest != nil
	}, h.OnChatJoinRequest)

	zlog.Info("бот запущен")
	tglog.Send("🤖 Бот @%s запущен", me.Username)
	b.Start(ctx)
	zlog.Info("бот остановлен")
}
