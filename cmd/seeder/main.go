package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	flag "github.com/spf13/pflag"
)

var (
	dbURL    string
	users    int
	gives    int
	daysBack int
)

func init() {
	flag.StringVar(&dbURL, "db", os.Getenv("DB_SOURCE"), "Postgres connection string")
	flag.IntVar(&users, "users", 20, "Number of distinct users to seed")
	flag.IntVar(&gives, "gives", 500, "Number of give transactions to seed")
	flag.IntVar(&daysBack, "days", 30, "Spread timestamps over this many past days")
}

var notes = []string{
	"great presentation!",
	"thanks for the code review",
	"covered my on-call shift",
	"fixed the flaky build",
	"helped me debug for an hour",
	"wrote the missing docs",
}

func main() {
	flag.Parse()
	if dbURL == "" {
		log.Fatal("no database configured: pass --db or set DB_SOURCE")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer conn.Close(ctx)

	log.Println("--- Seeding Database ---")

	var count int
	conn.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	if count >= gives {
		log.Printf("Database already has %d transactions. Skipping.", count)
		return
	}

	log.Printf("Generating %d gives across %d users...", gives, users)
	now := time.Now().UTC()
	rows := [][]interface{}{}
	for i := 0; i < gives; i++ {
		giver := fmt.Sprintf("U%04d", rand.Intn(users))
		recipient := fmt.Sprintf("U%04d", rand.Intn(users))
		for recipient == giver {
			recipient = fmt.Sprintf("U%04d", rand.Intn(users))
		}
		recordedAt := now.Add(-time.Duration(rand.Intn(daysBack*24*60)) * time.Minute)
		rows = append(rows, []interface{}{
			giver,
			recipient,
			1 + rand.Intn(3),
			notes[rand.Intn(len(notes))],
			recordedAt,
			fmt.Sprintf("C%04d", rand.Intn(5)),
		})
	}

	copyCount, err := conn.CopyFrom(
		ctx,
		pgx.Identifier{"transactions"},
		[]string{"giver", "recipient", "amount", "note", "recorded_at", "source_channel"},
		pgx.CopyFromRows(rows),
	)

	if err != nil {
		log.Fatalf("Bulk insert failed: %v", err)
	}

	log.Printf("Successfully seeded %d transactions.", copyCount)
}
