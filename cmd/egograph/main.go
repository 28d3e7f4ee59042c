package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/ego/metrics"
	"github.com/edenrobotics/egograph/episodic"
	"github.com/edenrobotics/egograph/graph"
	"github.com/edenrobotics/egograph/internal/profile"
	"github.com/edenrobotics/egograph/internal/version"
	"github.com/edenrobotics/egograph/server"
	"github.com/edenrobotics/egograph/store"
	"github.com/edenrobotics/egograph/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "egograph",
	Short: `A self-model engine for embodied agents. Events flow through layered importance scoring into a personality-weighted memory graph.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Only load .env for direct binary execution; service managers
		// inject environment variables themselves.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			printDatabaseError(err, instanceProfile)
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		embedder := newEmbedder(instanceProfile)

		egoGraph := graph.New(storeInstance, embedder.Model(), graph.DefaultConfig())
		if err := egoGraph.Load(ctx); err != nil {
			slog.Error("failed to load ego graph", "error", err)
			return
		}

		episodicStore := episodic.New(storeInstance, embedder, episodic.DefaultConfig())
		if err := episodicStore.Load(ctx); err != nil {
			slog.Error("failed to load episodic store", "error", err)
			return
		}
		go episodicStore.RunSweeper(ctx)

		backfiller := graph.NewBackfiller(egoGraph, storeInstance, embedder, time.Minute)
		go backfiller.Run(ctx)

		cfg := ego.DefaultConfig()
		analyzer := newAnalyzer(instanceProfile, cfg)
		recorder := metrics.NewRecorder()
		hub := server.NewHub()

		engine := ego.NewEngine(
			cfg,
			ego.NewHeuristicScorer(cfg),
			ego.NewSemanticScorer(embedder, egoGraph, cfg),
			analyzer,
			egoGraph,
			episodicStore,
			hub,
			recorder,
		)

		s := server.NewServer(instanceProfile, engine, egoGraph, episodicStore, recorder, hub)

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is the
		// default signal sent by process managers such as systemd and
		// Kubernetes.
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28091)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28091, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your egograph instance")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("egograph")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// newEmbedder picks the configured embedding provider, falling back to the
// deterministic in-process embedder so semantic scoring always works.
func newEmbedder(p *profile.Profile) ai.EmbeddingService {
	if p.IsEmbeddingEnabled() {
		aiConfig := ai.NewConfigFromProfile(p)
		embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err == nil {
			slog.Info("embedding service initialized",
				"provider", aiConfig.Embedding.Provider,
				"model", aiConfig.Embedding.Model,
			)
			return embedder
		}
		slog.Warn("failed to initialize embedding service, using local embedder", "error", err)
	}
	return ai.NewLocalEmbedder(p.EmbeddingDimensions)
}

// newAnalyzer builds the LLM scoring layer, or returns nil so the pipeline
// degrades to heuristic and semantic signals only.
func newAnalyzer(p *profile.Profile, cfg *ego.Config) *ego.Analyzer {
	if !p.IsLLMEnabled() {
		slog.Info("LLM layer disabled, scoring with heuristic and semantic signals only")
		return nil
	}

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		slog.Warn("invalid LLM configuration, disabling LLM layer", "error", err)
		return nil
	}
	llmService, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		slog.Warn("failed to initialize LLM service, disabling LLM layer",
			"provider", aiConfig.LLM.Provider,
			"error", err,
		)
		return nil
	}
	slog.Info("LLM service initialized",
		"provider", aiConfig.LLM.Provider,
		"model", aiConfig.LLM.Model,
	)

	// Warmup asynchronously to reduce first-request latency. Best-effort.
	go func() {
		warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer warmupCancel()
		llmService.Warmup(warmupCtx)
	}()

	return ego.NewAnalyzer(llmService, cfg)
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("EgoGraph %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
		fmt.Printf("Access EgoGraph at: http://localhost:%d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
		fmt.Printf("Access EgoGraph at: http://%s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError provides user-friendly error messages for database
// connection issues.
func printDatabaseError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL is not reachable.")
		if profile.Driver == "postgres" {
			fmt.Fprintf(os.Stderr, "   Start it, or use SQLite for development:\n")
			fmt.Fprintf(os.Stderr, "   ./egograph --driver=sqlite --data=./data\n")
		}
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL SSL configuration mismatch.")
		fmt.Fprintf(os.Stderr, "   Add ?sslmode=disable to your DSN.\n")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL authentication failed. Check the credentials in your DSN or .env file.")
	default:
		fmt.Fprintln(os.Stderr, "\nError:", errMsg)
	}

	if _, statErr := os.Stat(".env"); statErr != nil {
		fmt.Fprintf(os.Stderr, "\nTip: create a .env file for local configuration (see .env.example)\n")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
