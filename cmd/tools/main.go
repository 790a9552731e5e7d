package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dealerdesk/dealerdesk-backend/internal/config"
	"github.com/dealerdesk/dealerdesk-backend/internal/database"
	"github.com/dealerdesk/dealerdesk-backend/internal/ratelimit"
	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
	"github.com/dealerdesk/dealerdesk-backend/internal/repository/postgres"
)

// Quota admin tool: list daily counts, reset an identifier, hash an admin
// token for the config.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		fs := flag.NewFlagSet("stats", flag.ExitOnError)
		date := fs.String("date", "", "filter by date (YYYY-MM-DD)")
		fs.Parse(os.Args[2:])
		runStats(*date)
	case "reset":
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		identifier := fs.String("identifier", "", "identifier to reset (empty resets all)")
		fs.Parse(os.Args[2:])
		runReset(*identifier)
	case "hash-token":
		fs := flag.NewFlagSet("hash-token", flag.ExitOnError)
		token := fs.String("token", "", "admin token to hash")
		fs.Parse(os.Args[2:])
		runHashToken(*token)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: tools <stats|reset|hash-token> [flags]")
	fmt.Println("  stats      -date YYYY-MM-DD   list daily interaction counts")
	fmt.Println("  reset      -identifier ID     zero today's count for an identifier (or all)")
	fmt.Println("  hash-token -token TOKEN       print the bcrypt hash for an admin token")
}

func connect() repository.RateLimitRepository {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	return postgres.NewRateLimitRepository(db.DB)
}

func runStats(date string) {
	repo := connect()

	var dateFilter *time.Time
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			log.Fatal("Invalid date, expected YYYY-MM-DD:", err)
		}
		dateFilter = &parsed
	}

	records, err := repo.List(context.Background(), dateFilter)
	if err != nil {
		log.Fatal("Failed to list records:", err)
	}

	for _, r := range records {
		last := "-"
		if r.LastInteractionAt != nil {
			last = r.LastInteractionAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %s  count=%d  last=%s\n",
			r.Date.Format("2006-01-02"), r.Identifier, r.InteractionCount, last)
	}
	fmt.Printf("%d record(s)\n", len(records))
}

func runReset(identifier string) {
	repo := connect()
	limiter := ratelimit.NewLimiter(repo)

	reset, err := limiter.Reset(context.Background(), identifier)
	if err != nil {
		log.Fatal("Failed to reset:", err)
	}
	if identifier == "" {
		fmt.Printf("Reset %d record(s) for all identifiers (today)\n", reset)
	} else {
		fmt.Printf("Reset %d record(s) for %s (today)\n", reset, identifier)
	}
}

func runHashToken(token string) {
	if token == "" {
		log.Fatal("-token is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), 12)
	if err != nil {
		log.Fatal("Failed to generate hash:", err)
	}
	fmt.Println(string(hash))
}
