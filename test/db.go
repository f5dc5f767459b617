package test

import (
	"context"
	"fmt"
	"time"

	"github.com/apiplans/checkout-backend/internal"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PostgresUser is the superuser created in the PostgreSQL test container.
	PostgresUser = "checkout"
	// PostgresPassword is the password of PostgresUser.
	PostgresPassword = "checkout"
	// PostgresDatabase is the database created in the PostgreSQL test container.
	PostgresDatabase = "checkout"
)

var (
	mongoPort    = nat.Port("27017/tcp")
	postgresPort = nat.Port("5432/tcp")
)

// StartMongoContainer starts a MongoDB container. Use
// container.Endpoint(ctx, "mongodb") to build the connection URI.
func StartMongoContainer(ctx context.Context) (testcontainers.Container, error) {
	return testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{string(mongoPort)},
				WaitingFor:   wait.ForListeningPort(mongoPort),
			},
			Started: true,
		})
}

// StartPostgresContainer starts a PostgreSQL container with PostgresUser,
// PostgresPassword and PostgresDatabase preconfigured.
func StartPostgresContainer(ctx context.Context) (testcontainers.Container, error) {
	return testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{string(postgresPort)},
				Env: map[string]string{
					"POSTGRES_USER":     PostgresUser,
					"POSTGRES_PASSWORD": PostgresPassword,
					"POSTGRES_DB":       PostgresDatabase,
				},
				// postgres restarts once after running the init scripts
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			},
			Started: true,
		})
}

// PostgresDSN returns the DSN for the given PostgreSQL container, without the
// password so callers can exercise the separate credential setting.
func PostgresDSN(ctx context.Context, container testcontainers.Container) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
		PostgresUser, host, port.Port(), PostgresDatabase), nil
}

// RandomDatabaseName returns a unique database name for isolated test runs.
func RandomDatabaseName() string {
	return "checkout-test-" + internal.RandomHex(6)
}
