//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const migrationSource = "file://../../internal/database/migrations"

var (
	dbPool   *pgxpool.Pool
	redisURL string
)

func TestMain(m *testing.M) {
	code, err := run(m)
	if err != nil {
		log.Fatalf("integration setup failed: %v", err)
	}
	os.Exit(code)
}

func run(m *testing.M) (int, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return 0, fmt.Errorf("connect to docker: %w", err)
	}
	pool.MaxWait = 2 * time.Minute

	err = pool.Client.Ping()
	if err != nil {
		return 0, fmt.Errorf("ping docker: %w", err)
	}

	postgres, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=survey",
			"POSTGRES_PASSWORD=survey",
			"POSTGRES_DB=survey",
		},
	}, disposable)
	if err != nil {
		return 0, fmt.Errorf("start postgres: %w", err)
	}
	defer func() {
		_ = pool.Purge(postgres)
	}()
	_ = postgres.Expire(600)

	databaseURL := fmt.Sprintf("postgres://survey:survey@%s/survey?sslmode=disable", postgres.GetHostPort("5432/tcp"))
	err = pool.Retry(func() error {
		p, err := pgxpool.New(context.Background(), databaseURL)
		if err != nil {
			return err
		}
		if err := p.Ping(context.Background()); err != nil {
			p.Close()
			return err
		}
		dbPool = p
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("wait for postgres: %w", err)
	}
	defer dbPool.Close()

	err = databaseutil.MigrationUp(migrationSource, databaseURL, zap.NewNop())
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}

	redisResource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, disposable)
	if err != nil {
		return 0, fmt.Errorf("start redis: %w", err)
	}
	defer func() {
		_ = pool.Purge(redisResource)
	}()
	_ = redisResource.Expire(600)

	redisURL = "redis://" + redisResource.GetHostPort("6379/tcp") + "/0"
	err = pool.Retry(func() error {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer func() {
			_ = client.Close()
		}()
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		return 0, fmt.Errorf("wait for redis: %w", err)
	}

	return m.Run(), nil
}

func disposable(config *docker.HostConfig) {
	config.AutoRemove = true
	config.RestartPolicy = docker.RestartPolicy{Name: "no"}
}
