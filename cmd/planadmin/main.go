// Command planadmin sets the plan and its expiry for one Telegram user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"dreambot/internal/adapter/repo"
	"dreambot/internal/entitlement"
)

func main() {
	var (
		tgFlag   string
		planFlag string
		daysFlag int
	)

	flag.StringVar(&tgFlag, "tg", "", "Telegram id of the user to update")
	flag.StringVar(&planFlag, "plan", "paid", "plan to assign (free, paid)")
	flag.IntVar(&daysFlag, "days", 30, "paid period length in days")
	flag.Parse()

	tgID := strings.TrimSpace(tgFlag)
	plan := strings.TrimSpace(strings.ToLower(planFlag))

	if tgID == "" {
		exitWithError(errors.New("-tg is required"))
	}
	switch plan {
	case entitlement.PlanFree, entitlement.PlanPaid:
	default:
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}
	if plan == entitlement.PlanPaid && daysFlag <= 0 {
		exitWithError(errors.New("-days must be positive for a paid plan"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)

	var until time.Time
	if plan == entitlement.PlanPaid {
		until = time.Now().AddDate(0, 0, daysFlag)
	}
	if err := users.SetPlan(ctx, tgID, plan, until); err != nil {
		exitWithError(fmt.Errorf("failed to update plan: %w", err))
	}

	if plan == entitlement.PlanPaid {
		fmt.Printf("User %s updated to plan %s until %s\n", tgID, plan, until.Format(time.RFC3339))
	} else {
		fmt.Printf("User %s downgraded to plan %s\n", tgID, plan)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
