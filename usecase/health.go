package usecase

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"gorm.io/gorm"

	domainHealth "github.com/TMEades/solocreatorhub-ai-sub000/domains/health"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/mongodb"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/valkey"
	"github.com/TMEades/solocreatorhub-ai-sub000/repository"
)

type serviceHealth struct {
	db           *gorm.DB
	mongoClient  *mongodb.Client
	valkeyClient *valkey.Client
	schedule     repository.IScheduleRepository
	serverID     string
	startedAt    time.Time
}

func NewHealthService(db *gorm.DB, mongoClient *mongodb.Client, valkeyClient *valkey.Client, schedule repository.IScheduleRepository, serverID string) domainHealth.IHealthUsecase {
	return &serviceHealth{
		db:           db,
		mongoClient:  mongoClient,
		valkeyClient: valkeyClient,
		schedule:     schedule,
		serverID:     serverID,
		startedAt:    time.Now(),
	}
}

func (service *serviceHealth) GetStatus(ctx context.Context) (domainHealth.Status, error) {
	status := domainHealth.Status{
		Healthy:  true,
		Uptime:   humanize.RelTime(service.startedAt, time.Now(), "", ""),
		ServerID: service.serverID,
	}

	status.Stores = append(status.Stores, service.checkScheduleStore(ctx))
	status.Stores = append(status.Stores, service.checkContentStore(ctx))
	// Valkey is optional; the service degrades to store-only scheduling
	// without it, so it never flips the aggregate to unhealthy.
	if service.valkeyClient != nil {
		status.Stores = append(status.Stores, domainHealth.StoreStatus{
			Name:      "valkey",
			Connected: service.valkeyClient.IsConnected(),
		})
	}

	for _, store := range status.Stores {
		if store.Name != "valkey" && !store.Connected {
			status.Healthy = false
		}
	}

	if count, err := service.schedule.CountScheduled(ctx); err == nil {
		status.ScheduledCount = count
	}

	return status, nil
}

func (service *serviceHealth) checkScheduleStore(ctx context.Context) domainHealth.StoreStatus {
	store := domainHealth.StoreStatus{Name: "schedule_store"}

	sqlDB, err := service.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		store.Error = err.Error()
		return store
	}

	store.Connected = true
	return store
}

func (service *serviceHealth) checkContentStore(ctx context.Context) domainHealth.StoreStatus {
	store := domainHealth.StoreStatus{Name: "content_store"}

	if err := service.mongoClient.Ping(ctx); err != nil {
		store.Error = err.Error()
		return store
	}

	store.Connected = true
	return store
}
