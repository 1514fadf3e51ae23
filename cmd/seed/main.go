package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"cloudfiles/internal/auth"
	"cloudfiles/internal/changefeed"
	"cloudfiles/internal/config"
	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/repository/postgres"
	postgresDrive "cloudfiles/internal/repository/postgres/drive"
	driveService "cloudfiles/internal/service/drive"
	"cloudfiles/internal/storage/blob"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// seedFolder is a folder with nested folders and text files
type seedFolder struct {
	name    string
	folders []seedFolder
	files   map[string]string
}

var sampleTree = []seedFolder{
	{
		name: "Documents",
		folders: []seedFolder{
			{name: "Work", files: map[string]string{
				"roadmap.md":  "# Roadmap\n\n- Q1: sync\n- Q2: sharing\n",
				"meeting.txt": "Agenda: storage quotas\n",
			}},
			{name: "Personal", files: map[string]string{
				"todo.txt": "renew passport\n",
			}},
		},
	},
	{
		name: "Photos",
		folders: []seedFolder{
			{name: "2024"},
		},
	},
	{
		name:  "Shared",
		files: map[string]string{"README.md": "Files placed here are visible to collaborators.\n"},
	},
}

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed folders")
	clearData := flag.Bool("clear-data", false, "Clear the user's folders and files (keep schema)")
	userID := flag.String("user-id", "", "User to seed (defaults to DEV_USER_ID)")
	email := flag.String("email", "", "Create or look up this Supabase user and seed it")
	password := flag.String("password", "", "Password used when the user is created")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run destructive operations (--drop-tables or --clear-data) in production")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()

	// Create database connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	owner, err := resolveUser(ctx, cfg, *userID, *email, *password)
	if err != nil {
		log.Fatalf("Failed to resolve user: %v", err)
	}

	if *clearData {
		if err := clearUserData(ctx, pool, tables, owner); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Printf("Data cleared (user: %s)", owner)
		return
	}

	log.Printf("Seeding folders (environment: %s, prefix: %s, user: %s)", cfg.Environment, cfg.TablePrefix, owner)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgresDrive.NewFolderRepository(repoConfig)
	fileRepo := postgresDrive.NewFileRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Running servers see seeded changes when the feed is shared (Redis)
	feed, err := changefeed.FromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create change feed: %v", err)
	}
	defer feed.Close()

	blobs, err := blob.FromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	service := driveService.NewDriveService(folderRepo, fileRepo, blobs, feed, txManager, logger)

	folders, files := 0, 0
	for _, f := range sampleTree {
		nf, nfi, err := seed(ctx, service, owner, models.RootID, f)
		if err != nil {
			log.Fatalf("Failed to seed %q: %v", f.name, err)
		}
		folders += nf
		files += nfi
	}

	log.Printf("Seeding complete: %d folders, %d files", folders, files)
}

// resolveUser picks the seed owner: explicit id, Supabase user by email, then DEV_USER_ID
func resolveUser(ctx context.Context, cfg *config.Config, userID, email, password string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	if email != "" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return "", errors.New("--email requires SUPABASE_URL and SUPABASE_KEY")
		}
		return auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey).EnsureUser(ctx, email, password)
	}
	if cfg.DevUserID != "" {
		return cfg.DevUserID, nil
	}
	return "", errors.New("no user: pass --user-id or --email, or set DEV_USER_ID")
}

// seed creates a folder tree, reusing folders that already exist
func seed(ctx context.Context, service driveSvc.DriveService, userID, parentID string, f seedFolder) (int, int, error) {
	folder, err := service.CreateFolder(ctx, &driveSvc.CreateFolderRequest{
		UserID:   userID,
		Name:     f.name,
		ParentID: parentID,
	})
	created := 1
	if err != nil {
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			return 0, 0, err
		}
		folder, err = service.GetFolder(ctx, userID, models.FolderByID(conflict.ResourceID))
		if err != nil {
			return 0, 0, err
		}
		created = 0
	}

	files := 0
	for name, content := range f.files {
		_, err := service.UploadFile(ctx, &driveSvc.UploadFileRequest{
			UserID:      userID,
			FolderID:    folder.ID,
			Name:        name,
			ContentType: "text/plain; charset=utf-8",
			Size:        int64(len(content)),
			Body:        strings.NewReader(content),
		})
		if err != nil {
			return 0, 0, fmt.Errorf("upload %s: %w", name, err)
		}
		files++
	}

	for _, child := range f.folders {
		nf, nfi, err := seed(ctx, service, userID, folder.ID, child)
		if err != nil {
			return 0, 0, err
		}
		created += nf
		files += nfi
	}

	return created, files, nil
}

func clearUserData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID string) error {
	for _, table := range []string{tables.Files, tables.Folders} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table)
		if _, err := pool.Exec(ctx, query, userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
