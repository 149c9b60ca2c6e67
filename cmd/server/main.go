// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/boardyhq/campaign-backend/internal/controller"
	"github.com/boardyhq/campaign-backend/internal/db"
	"github.com/boardyhq/campaign-backend/internal/handler"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/queue"
	"github.com/boardyhq/campaign-backend/internal/repository"
	"github.com/boardyhq/campaign-backend/internal/service"
)

// dripIntervals maps interval units to durations, with env overrides so a
// demo deployment can drip every few seconds instead of every day.
func dripIntervals() map[string]time.Duration {
	intervals := map[string]time.Duration{
		model.IntervalHourly: time.Hour,
		model.IntervalDaily:  24 * time.Hour,
	}
	if v := os.Getenv("DRIP_HOURLY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			intervals[model.IntervalHourly] = d
		}
	}
	if v := os.Getenv("DRIP_DAILY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			intervals[model.IntervalDaily] = d
		}
	}
	return intervals
}

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	// Campaign store: postgres when a database is configured, in-memory
	// otherwise.
	var store repository.CampaignStoreInterface
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != "" {
		db.Init()
		repo := &repository.CampaignRepository{DB: db.DB}
		if err := repo.Migrate(); err != nil {
			log.Fatalf("failed to migrate campaign tables: %v", err)
		}
		store = repo
	} else {
		store = repository.NewMemoryCampaignStore()
	}

	deliverer := &service.TimeoutDeliverer{
		Next:    &service.MockDeliverer{FailureRate: 0.05},
		Timeout: 10 * time.Second,
	}

	campaignService := service.NewCampaignService(store, deliverer, dripIntervals())

	// Activation jobs: RabbitMQ when configured (consumed by cmd/worker),
	// otherwise the in-memory queue with a local subscriber.
	var q queue.Queue
	if url := os.Getenv("AMQP_URL"); url != "" {
		q = queue.NewAMQPQueue(url)
	} else {
		inMem := queue.NewInMemoryQueue()
		queue.StartActivationSubscriber(inMem, func(id string) error {
			_, err := campaignService.Activate(id)
			return err
		})
		q = inMem
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Queue:           q,
	}
	campaignHandler := &handler.CampaignHandler{
		Service: campaignService,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Post("/campaigns/send", campaignController.SendCampaign)
	r.Get("/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandler)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/activate", campaignController.Activate)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/reset", campaignController.ResetCampaign)
	r.Post("/campaigns/{id}/load", campaignController.LoadCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	log.Println("Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
