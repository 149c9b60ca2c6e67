//cmd/seeder/main.go
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/boardyhq/campaign-backend/internal/ingest"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/repository"
	"github.com/boardyhq/campaign-backend/internal/service"
)

// Seeds the database with a draft campaign built from seed/recipients.csv.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	repo := &repository.CampaignRepository{DB: database}
	if err := repo.Migrate(); err != nil {
		log.Fatalf("failed to create campaign tables: %v", err)
	}

	f, err := os.Open("seed/recipients.csv")
	if err != nil {
		log.Fatalf("failed to read seed/recipients.csv: %v", err)
	}
	defer f.Close()

	recipients, err := ingest.ParseRecipients(f)
	if err != nil {
		log.Fatalf("failed to parse seed recipients: %v", err)
	}

	svc := service.NewCampaignService(repo, &service.MockDeliverer{}, nil)
	campaign, err := svc.CreateCampaign(model.CampaignDraft{
		Subject:      "Welcome to Boardy, {firstName}!",
		Body:         "Hi {firstName},\n\nThanks for joining us from {company}. We think you'll love what's coming.",
		SendMode:     model.ModeDrip,
		DripRate:     2,
		DripInterval: model.IntervalDaily,
		Recipients:   recipients,
	})
	if err != nil {
		log.Fatalf("failed to seed campaign: %v", err)
	}

	fmt.Printf("Seeded campaign %s with %d recipients\n", campaign.ID, len(recipients))
	fmt.Println("Database seeding completed successfully!")
}
