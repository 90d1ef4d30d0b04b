package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
	pg "marketplace-billing/internal/infra/db/postgres"
	"marketplace-billing/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	actionRepo := pg.NewActionRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	taxRepo := pg.NewTaxRepo(pool)
	actionUC := usecase.NewActionUseCase(actionRepo)
	planUC := usecase.NewPlanUseCase(planRepo)

	// ---- Billable actions ----
	// If actions already exist, leave the catalog alone.
	actions, err := actionUC.List(ctx)
	if err != nil {
		log.Fatalf("list actions: %v", err)
	}
	if len(actions) > 0 {
		fmt.Printf("%d actions already present. No changes to catalog.\n", len(actions))
	} else {
		seedActions := []struct {
			Name     string
			Area     model.AppArea
			Credits  int64
			Interval int
		}{
			{"create_job", model.AppAreaJob, 1, 30},
			{"sponsored_job", model.AppAreaJob, 3, 30},
			{"create_event", model.AppAreaEvent, 1, 30},
			{"sponsored_event", model.AppAreaEvent, 3, 30},
			{"career_fair", model.AppAreaCareerFair, 5, 30},
			{"featured_entity", model.AppAreaEntity, 2, 30},
		}
		for _, s := range seedActions {
			a, err := actionUC.Define(ctx, s.Name, s.Area, s.Credits, s.Interval)
			if err != nil {
				log.Fatalf("define action %q: %v", s.Name, err)
			}
			fmt.Printf("seeded action: %s (area=%s, credits=%d, interval=%dd)\n", a.Name, a.AppArea, a.CreditRequired, a.IntervalDays)
		}
	}

	// ---- Plans ----
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes to plans.\n", len(plans))
	} else {
		seedPlans := []struct {
			Name  string
			Days  int
			Price int64
		}{
			{"Starter", 30, 4_900},
			{"Growth", 90, 12_900},
			{"Enterprise", 365, 44_900},
		}
		for _, s := range seedPlans {
			p, err := planUC.Create(ctx, s.Name, s.Days, s.Price, cfg.Billing.Currency)
			if err != nil {
				log.Fatalf("create plan %q: %v", s.Name, err)
			}
			fmt.Printf("seeded plan: %s (id=%s, days=%d, price=%d %s)\n", p.Name, p.ID, p.DurationDays, p.PriceCents, p.Currency)
		}
	}

	// ---- Country taxes ----
	seedTaxes := []model.CountryTax{
		{Country: "US", Percent: 0},
		{Country: "DE", Percent: 19},
		{Country: "GB", Percent: 20},
		{Country: "NL", Percent: 21},
	}
	for _, t := range seedTaxes {
		tt := t
		if err := taxRepo.Save(ctx, repository.NoTX, &tt); err != nil {
			log.Fatalf("save tax %q: %v", t.Country, err)
		}
	}
	fmt.Printf("seeded %d country tax rates\n", len(seedTaxes))

	fmt.Println("✅ Seeding complete.")
}
