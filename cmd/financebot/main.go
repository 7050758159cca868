package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-bot/internal/bot"
	"finance-bot/internal/config"
	"finance-bot/internal/report"
	"finance-bot/internal/repository"
	"finance-bot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	recordSvc := service.NewRecordService(incomeRepo, expenseRepo, categoryRepo)
	statsSvc := service.NewStatsService(statsRepo)
	imageSvc := service.NewImageService(cfg.FetchTimeout)

	dialog := bot.NewDialog(recordSvc, statsSvc, report.NewRenderer(), imageSvc)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, dialog)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.SessionTTL > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
			telegramBot.ExpireStaleDialogs(cfg.SessionTTL)
		}); err != nil {
			log.Fatalf("schedule dialog sweep: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("Finance bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
