package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/netbatch/netbatch/pkg/db"
	"github.com/netbatch/netbatch/pkg/napi"
	"github.com/netbatch/netbatch/pkg/napi/config"
	"github.com/netbatch/netbatch/pkg/napi/routes"
	"github.com/netbatch/netbatch/pkg/napi/services"
	"github.com/netbatch/netbatch/pkg/nlog"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the netbatch server",
	Long:  `Starts the API server, connects to Postgres and the artifact backend, and serves the console endpoints.`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.ValidateEnv()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	cfg.Print(log.Printf)

	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	logger := nlog.NewDefault()
	svcs, err := services.NewServices(ctx, cfg, database, logger)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer svcs.Close()

	api := napi.NewApi()
	routes.RegisterAPI(api.Api, svcs)

	addr := fmt.Sprintf(":%s", cfg.Port)

	log.Printf("🚀 netbatch server starting on %s\n", addr)
	log.Printf("📚 OpenAPI docs: http://localhost%s/docs\n", addr)
	log.Printf("📄 OpenAPI spec: http://localhost%s/openapi.json\n", addr)

	if err := http.ListenAndServe(addr, api.Router); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
