package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/database"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/service"
)

const seedCreator = "seed"

func main() {
	var path string
	var printTokens bool
	flag.StringVar(&path, "file", "cmd/seed/fixtures.yaml", "Path to the YAML fixture file")
	flag.BoolVar(&printTokens, "tokens", true, "Print a signed development token per seeded user")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fx, err := loadFixtures(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to load fixtures")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	authService := service.NewAuthService(cfg)

	// ─── Users ─────────────────────────────────────────────────────────
	fmt.Printf("=== Seeding %d users ===\n", len(fx.Users))
	for _, uf := range fx.Users {
		u := &model.User{
			ID:         uf.ID,
			Email:      uf.Email,
			Name:       uf.Name,
			Year:       uf.Year,
			Department: model.NormalizeDepartment(uf.Department),
		}
		if err := userRepo.UpsertProfile(ctx, u); err != nil {
			log.Fatal().Err(err).Str("user_id", uf.ID).Msg("Failed to upsert user")
		}
		role := uf.Role
		if role == "" {
			role = model.RoleStudent
		}
		if err := userRepo.SetRole(ctx, uf.ID, uf.Email, role); err != nil {
			log.Fatal().Err(err).Str("user_id", uf.ID).Msg("Failed to set role")
		}

		if printTokens {
			token, err := authService.IssueToken(uf.ID, uf.Email)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to issue token")
			}
			fmt.Printf("  %-8s %-20s %s\n", role, uf.ID, token)
		} else {
			fmt.Printf("  %-8s %s\n", role, uf.ID)
		}
	}

	// ─── Questions ─────────────────────────────────────────────────────
	var questions []model.Question
	for _, qf := range fx.Questions {
		questions = append(questions, qf.expand(seedCreator)...)
	}
	if len(questions) > 0 {
		n, err := questionRepo.CreateBatch(ctx, questions)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to insert questions")
		}
		fmt.Printf("=== Inserted %d questions ===\n", n)
	}

	// ─── Exams ─────────────────────────────────────────────────────────
	now := time.Now()
	fmt.Printf("=== Seeding %d exams ===\n", len(fx.Exams))
	for _, ef := range fx.Exams {
		exam := ef.toExam(now, seedCreator)
		if err := examRepo.Create(ctx, exam); err != nil {
			log.Fatal().Err(err).Str("exam", ef.Name).Msg("Failed to create exam")
		}
		fmt.Printf("  %s  %-30s %s -> %s\n", exam.ID, exam.Name,
			exam.StartTime.Format(time.RFC3339), exam.EndTime.Format(time.RFC3339))
	}

	fmt.Println("Seeding complete")
}
