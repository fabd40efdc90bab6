package testinfra

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/2beens/edgetrack/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

const (
	testDBName     = "edgetrack"
	testDBUser     = "postgres"
	testDBPassword = "postgres"
)

// StartPostgres runs a throwaway postgres container, applies the schema and
// returns a pgx pool connected to it. Everything is torn down with t.Cleanup.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	dockerPool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create new dockertest pool")
	require.NoError(t, dockerPool.Client.Ping(), "could not ping docker")
	dockerPool.MaxWait = 60 * time.Second

	pgResource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + testDBUser,
			"POSTGRES_PASSWORD=" + testDBPassword,
			"POSTGRES_DB=" + testDBName,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err, "dockerpool run postgres")
	t.Cleanup(func() {
		if err := dockerPool.Purge(pgResource); err != nil {
			t.Logf("purge postgres container: %s", err)
		}
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf(
		"postgres://%s:%s@localhost:%s/%s?sslmode=disable",
		testDBUser, testDBPassword, pgPort, testDBName,
	)

	var sqlDB *sql.DB
	err = dockerPool.Retry(func() error {
		var err error
		sqlDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})
	require.NoError(t, err, "postgres never became ready")
	defer sqlDB.Close()

	_, err = sqlDB.Exec(db.Schema())
	require.NoError(t, err, "apply schema")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     "localhost",
		DBPort:     pgPort,
		DBName:     testDBName,
		DBUser:     testDBUser,
		DBPassword: testDBPassword,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	return pool
}
