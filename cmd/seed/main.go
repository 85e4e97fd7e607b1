package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

func main() {
	providers := flag.Int("providers", 20, "number of providers to create")
	patients := flag.Int("patients", 2000, "number of patients to create")
	days := flag.Int("days", 5, "days of availability to publish per provider, starting tomorrow")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(ctx, pool, logger, *providers)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed providers")
	}
	if err := seedPatients(ctx, pool, logger, *patients); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	repo := scheduling.NewPgRepository(pool)
	manager := scheduling.NewAvailabilityManager(repo, nil, logger)
	if err := seedAvailability(ctx, manager, logger, providerIDs, *days); err != nil {
		logger.Fatal().Err(err).Msg("seed availability")
	}

	logger.Info().Msg("seed complete")
}

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding providers")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, first_name, last_name, email, specialization, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), id.String()[:8]+"."+gofakeit.Email(), specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, gofakeit.FirstName(), gofakeit.LastName(), id.String()[:8]+"."+gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("patients batch committed")
	}

	logger.Info().Msg("patients seeded")
	return nil
}

// seedAvailability publishes a morning and an afternoon window per provider per
// day. The shapes vary so listings show a mix of slot sizes and breaks.
func seedAvailability(ctx context.Context, manager *scheduling.AvailabilityManager, logger zerolog.Logger, providerIDs []uuid.UUID, days int) error {
	types := []scheduling.AppointmentType{
		scheduling.TypeConsultation,
		scheduling.TypeFollowUp,
		scheduling.TypeTelemedicine,
	}
	durations := []int{15, 20, 30, 45, 60}
	tomorrow := scheduling.DateOf(time.Now().UTC()).AddDate(0, 0, 1)

	total := 0
	for _, providerID := range providerIDs {
		for d := 0; d < days; d++ {
			date := tomorrow.AddDate(0, 0, d)
			for _, block := range [][2]string{{"09:00", "12:00"}, {"13:00", "17:00"}} {
				apptType := types[gofakeit.Number(0, len(types)-1)]
				req := scheduling.AvailabilityRequest{
					Date:                 date,
					StartTime:            scheduling.MustTimeOfDay(block[0]),
					EndTime:              scheduling.MustTimeOfDay(block[1]),
					Timezone:             gofakeit.RandomString([]string{"America/New_York", "America/Chicago", "Europe/London"}),
					SlotDurationMinutes:  durations[gofakeit.Number(0, len(durations)-1)],
					BreakDurationMinutes: gofakeit.RandomInt([]int{0, 5, 10, 15}),
					AppointmentType:      apptType,
					Pricing: &scheduling.Pricing{
						BaseFee:           decimal.NewFromInt(int64(gofakeit.Number(50, 300))),
						InsuranceAccepted: gofakeit.Bool(),
					},
				}
				if apptType == scheduling.TypeTelemedicine {
					req.Location = &scheduling.Location{Type: scheduling.LocationTelemedicine}
				} else {
					req.Location = &scheduling.Location{
						Type:       scheduling.LocationClinic,
						Address:    gofakeit.Street() + ", " + gofakeit.City(),
						RoomNumber: gofakeit.Numerify("###"),
					}
				}

				res, err := manager.CreateAvailability(ctx, providerID, req)
				if err != nil {
					return err
				}
				total += res.SlotsCreated
			}
		}
	}

	logger.Info().Int("providers", len(providerIDs)).Int("days", days).Int("slots", total).Msg("availability seeded")
	return nil
}
