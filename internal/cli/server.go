package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/infra/memory"
	"quizroom-service/internal/infra/postgres"
	infraredis "quizroom-service/internal/infra/redis"
	transport "quizroom-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the repositories chosen from config plus what must be closed on exit.
type backends struct {
	rooms   app.RoomRepository
	quizzes app.QuizRepository
	scores  app.ScoreRepository
	tracker app.RoomTracker
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logrus.StandardLogger()
	cfg.ConfigureLogger(log)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	opts := []app.Option{
		app.WithLocation(cfg.Location()),
		app.WithSendBuffer(config.IntOr(cfg.Room.SendBuffer, 64)),
		app.WithLogger(log),
	}
	if b.tracker != nil {
		opts = append(opts, app.WithTracker(b.tracker))
	}
	service := app.NewRoomService(b.rooms, b.quizzes, b.scores, app.NewRegistry(), opts...)
	wsHandler := transport.NewWSHandler(service,
		transport.WithRateLimit(config.FloatOr(cfg.Room.RateLimit, 10), config.IntOr(cfg.Room.RateBurst, 20)),
		transport.WithLogger(log),
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(wsHandler),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting quizroom service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackends picks Postgres for rooms, quizzes and scores when configured,
// else fixtures in memory with Redis (or memory) scores. Quiz content is
// cached in Redis when an address is set, else in process.
func buildBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	var loader memory.QuizLoader

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		b.tracker = infraredis.NewRoomTracker(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}

	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := migrateDB(ctx, db); err != nil {
			b.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		b.rooms = postgres.NewRoomRepository(pool)
		loader = postgres.NewQuizLoader(pool)
		b.scores = postgres.NewScoreStore(db)
	} else {
		fixtures, err := loadFixtures(cfg)
		if err != nil {
			b.close()
			return nil, err
		}
		b.rooms = memory.NewRoomRepository(fixtures.Rooms...)
		loader = memory.NewStaticQuizLoader(fixtures.QuizMap())
		if redisClient != nil {
			b.scores = infraredis.NewScoreStore(redisClient)
		} else {
			b.scores = memory.NewScoreStore()
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		b.quizzes = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
	}
	return b, nil
}

func loadFixtures(cfg config.Config) (memory.Fixtures, error) {
	if cfg.Room.Fixtures == "" {
		logrus.Warn("no room fixtures configured, serving the built-in sample room")
		return memory.SampleFixtures(), nil
	}
	return memory.LoadFixtures(cfg.Room.Fixtures)
}
