package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "resume-tailor/internal/auth"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/llm"
	openai "resume-tailor/internal/llm/openai"
	"resume-tailor/internal/pipeline"
	"resume-tailor/internal/searchcache"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/server"
	"resume-tailor/internal/shared/storage/db"
	"resume-tailor/internal/shared/storage/object"
	localstore "resume-tailor/internal/shared/storage/object/local"
	s3store "resume-tailor/internal/shared/storage/object/s3"
	"resume-tailor/internal/templates"
	"resume-tailor/internal/uploads"
	"resume-tailor/internal/users"
)

// App holds the wired application: repositories, services, worker pool,
// and the HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Pool   *jobs.Pool

	JobsRepo      jobs.Repo
	JobsService   *jobs.Service
	TemplatesRepo templates.Repo
	SearchRepo    searchcache.Repo
	UsersRepo     users.Repo
}

// Build prepares all dependencies and the router. The worker pool is
// started; call Close on shutdown.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	var (
		jobsRepo     jobs.Repo
		templateRepo templates.Repo
		searchRepo   searchcache.Repo
		userRepo     users.Repo
	)
	if sqlDB != nil {
		jobsRepo = &jobs.PGRepo{DB: sqlDB}
		templateRepo = &templates.PGRepo{DB: sqlDB}
		searchRepo = &searchcache.PGRepo{DB: sqlDB}
		userRepo = &users.PGRepo{DB: sqlDB}
	} else {
		jobsRepo = jobs.NewMemoryRepo()
		templateRepo = templates.NewMemoryRepo()
		searchRepo = searchcache.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	pool := jobs.NewPool(cfg.JobQueueSize)
	pool.Start(cfg.WorkerCount)

	runner := pipeline.NewRunner(jobsRepo, llmClient, store, cfg.LLMStageTimeout)
	jobsSvc := &jobs.Service{
		Repo:      jobsRepo,
		Pool:      pool,
		Processor: runner,
		Store:     store,
		Quota: jobs.QuotaPolicy{
			MaxConcurrent: cfg.MaxConcurrentJob,
			DailyLimit:    cfg.DailyJobLimit,
			Location:      cfg.QuotaLocation(),
		},
		ResumeProgress: cfg.ResumeProgress,
	}

	templatesSvc := templates.NewService(templateRepo)
	searchSvc := searchcache.NewService(searchRepo, searchcache.PlaceholderSearcher{}, cfg.SearchCacheTTL)
	usersSvc := users.NewService(userRepo)

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Store:         store,
		Pool:          pool,
		JobsRepo:      jobsRepo,
		JobsService:   jobsSvc,
		TemplatesRepo: templateRepo,
		SearchRepo:    searchRepo,
		UsersRepo:     userRepo,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		GoogleAuth: googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			usersSvc,
		),
		JobsHandler:      jobs.NewHandler(jobsSvc),
		TemplatesHandler: templates.NewHandler(templatesSvc),
		SearchHandler:    searchcache.NewHandler(searchSvc),
		UsersHandler:     users.NewHandler(usersSvc),
		UploadsHandler:   uploads.NewHandler(store, llmClient, cfg.LLMStageTimeout),
	})
	return app, nil
}

// Close drains the worker pool and releases the database.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Stop()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; generation disabled")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	client, err := openai.NewClient(apiKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
