package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/database"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	var uid, email, role string
	var yes bool
	flag.StringVar(&uid, "uid", "", "User ID (the token subject)")
	flag.StringVar(&email, "email", "", "User email, stored when the user has no profile yet")
	flag.StringVar(&role, "role", model.RoleAdmin, "Role to grant: admin or student")
	flag.BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── CLI Input ─────────────────────────────────────────────────────
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	reader := bufio.NewReader(os.Stdin)

	if uid == "" && interactive {
		fmt.Println("=== Grant Role ===")
		fmt.Print("Enter User ID: ")
		uid, _ = reader.ReadString('\n')
		uid = strings.TrimSpace(uid)
	}
	if uid == "" {
		fmt.Println("Error: User ID is required")
		os.Exit(2)
	}

	if !yes {
		if !interactive {
			fmt.Println("Error: refusing to change roles without a terminal; pass -yes")
			os.Exit(2)
		}
		fmt.Printf("Grant role %q to %q? [y/N]: ", role, uid)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted")
			return
		}
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userService := service.NewUserService(repository.NewUserRepository(pool))

	if err := userService.GrantRole(ctx, uid, email, role); err != nil {
		log.Fatal().Err(err).Str("user_id", uid).Msg("Failed to grant role")
	}

	fmt.Printf("\nSuccess! %s now has role %q\n", uid, role)
}
