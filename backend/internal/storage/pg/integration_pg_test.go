package pg

import (
	"context"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clear-retro/clearretro/shared/config"
	"github.com/clear-retro/clearretro/shared/domain"
)

var storage *Storage

func TestMain(m *testing.M) {
	ctx := context.Background()
	var container *postgres.PostgresContainer
	storage, container = mustSetup(ctx)
	defer teardown(ctx, storage, container)

	exitCode := m.Run()
	os.Exit(exitCode)
}

func mustSetup(ctx context.Context) (*Storage, *postgres.PostgresContainer) {
	dbName := "clearretro"
	dbUser := "user"
	dbPassword := "password"
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			// First, we wait for the container to log readiness twice.
			// This is because it will restart itself after the first startup.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	containerPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to obtain container port: %s", err)
	}
	port, err := strconv.Atoi(containerPort.Port())
	if err != nil {
		log.Fatalf("failed to obtain int container port: %s", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("failed to obtain container host: %s", err)
	}

	// New applies the schema itself, no init scripts needed.
	storage, err := New(&config.Config{Private: config.Private{Pg: config.Pg{Host: host, Port: port, User: dbUser, Password: dbPassword, Dbname: dbName}}})
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	return storage, container
}

func teardown(ctx context.Context, storage *Storage, container *postgres.PostgresContainer) {
	if err := storage.Cleanup(); err != nil {
		log.Printf("failed to close storage connection: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

// makeBoard creates a throwaway board and registers cleanup.
func makeBoard(t *testing.T) *domain.BoardMetadata {
	t.Helper()
	board := &domain.BoardMetadata{
		Id:   uuid.NewString(),
		Name: "Test Board",
		Columns: []domain.Column{
			{Id: "start", Title: "Start"},
			{Id: "stop", Title: "Stop"},
		},
		Status:    domain.BoardActive,
		SortMode:  domain.SortByDate,
		CreatedBy: "creator",
		CreatedAt: time.Now().UTC(),
	}
	if err := storage.CreateBoard(board); err != nil {
		t.Fatalf("failed to create test board: %s", err)
	}
	t.Cleanup(func() { _ = storage.DeleteBoard(board.Id) })
	return board
}

// makeCard creates a card in the given board and column.
func makeCard(t *testing.T, board domain.BoardId, column domain.ColumnId, text string) *domain.Card {
	t.Helper()
	card, err := storage.CreateCard(domain.CardCreationData{
		Board:      board,
		Column:     column,
		Text:       text,
		AuthorId:   "author",
		AuthorName: "Author",
	}, 10000)
	if err != nil {
		t.Fatalf("failed to create test card: %s", err)
	}
	return card
}
