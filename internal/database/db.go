// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the global connection pool. Nil when the engine runs without
// postgres; callers guard on that and skip durable writes.
var DB *pgxpool.Pool

// ConnectDB opens the pool from POSTGRES_USER/POSTGRES_PASSWORD/PG_HOST/
// PG_PORT/PG_DATABASE and fails hard, since it is only called when
// persistence was explicitly requested.
func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}
	if s := os.Getenv("PG_MAX_CONNS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			config.MaxConns = int32(v)
		}
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database at %s:%s", os.Getenv("PG_HOST"), os.Getenv("PG_PORT"))
}
