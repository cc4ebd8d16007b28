package docker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest"
	dc "github.com/ory/dockertest/docker"

	_ "github.com/lib/pq"
)

// StartPostgres starts a throwaway postgres container for tests and waits until it
// accepts connections
func StartPostgres() (*dockertest.Resource, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=postgres",
		},
	}, func(config *dc.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = dc.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start postgres: %w", err)
	}

	resource.Expire(300)

	pool.MaxWait = time.Minute
	if err := pool.Retry(func() error {
		db, err := sql.Open("postgres", fmt.Sprintf("host=localhost port=%s user=postgres password=postgres dbname=postgres sslmode=disable", resource.GetPort("5432/tcp")))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		resource.Close()
		return nil, fmt.Errorf("could not connect to postgres container: %w", err)
	}

	return resource, nil
}
