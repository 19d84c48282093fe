package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	coreConfig "github.com/TMEades/solocreatorhub-ai-sub000/core/config"
	coreDB "github.com/TMEades/solocreatorhub-ai-sub000/core/database"
	domainHealth "github.com/TMEades/solocreatorhub-ai-sub000/domains/health"
	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/mongodb"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/valkey"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/utils"
	"github.com/TMEades/solocreatorhub-ai-sub000/repository"
	"github.com/TMEades/solocreatorhub-ai-sub000/usecase"
)

var (
	db           *gorm.DB
	mongoClient  *mongodb.Client
	valkeyClient *valkey.Client
	serverID     string

	postUsecase      domainPost.IPostUsecase
	schedulerUsecase domainSchedule.ISchedulerUsecase
	healthUsecase    domainHealth.IHealthUsecase

	appCtx    context.Context
	appCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "solocreatorhub",
	Short: "Social post scheduling service",
	Long:  `Schedules social media posts across platforms, with recurring series, a two-store persistence split and a background due-row promoter.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cobra.OnInitialize(initApp)
}

func initApp() {
	cfg, err := coreConfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[INIT] Failed to load configuration: %v", err)
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Fatalf("[INIT] Failed to prepare storage folder: %v", err)
	}

	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
	logrus.Infof("[INIT] Server ID: %s", serverID)

	appCtx, appCancel = context.WithCancel(context.Background())

	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[INIT] Failed to connect to schedule store: %v", err)
	}

	mongoClient, err = mongodb.NewClient(mongodb.Config{
		URI:      cfg.Database.MongoURI,
		Database: cfg.Database.MongoDatabase,
	})
	if err != nil {
		logrus.Fatalf("[INIT] Failed to connect to content store: %v", err)
	}

	if cfg.Database.ValkeyEnabled {
		valkeyClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[INIT] Valkey unavailable, due-row promotion disabled: %v", err)
			valkeyClient = nil
		}
	}

	scheduleRepo := repository.NewScheduleGormRepository(db)
	if err := scheduleRepo.Init(appCtx); err != nil {
		logrus.Fatalf("[INIT] Failed to migrate schedule store: %v", err)
	}

	contentRepo := repository.NewContentMongoRepository(mongoClient)
	if err := contentRepo.EnsureIndexes(appCtx); err != nil {
		logrus.Warnf("[INIT] Failed to ensure content store indexes: %v", err)
	}

	postUsecase = usecase.NewPostService(contentRepo, scheduleRepo, cfg.Scheduler.OptimisticStatus)
	schedulerUsecase = usecase.NewSchedulerService(scheduleRepo, valkeyClient, cfg.Scheduler)
	healthUsecase = usecase.NewHealthService(db, mongoClient, valkeyClient, scheduleRepo, serverID)

	schedulerUsecase.StartLoop(appCtx)
}

// StopApp releases every external connection. Called from the graceful
// shutdown path after the HTTP server has drained.
func StopApp() {
	if appCancel != nil {
		appCancel()
	}

	if valkeyClient != nil {
		valkeyClient.Close()
	}

	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Close(ctx); err != nil {
			logrus.Errorf("[SHUTDOWN] Error closing content store: %v", err)
		}
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("Command failed: %v", err)
	}
}
