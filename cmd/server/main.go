package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carechat/internal/api"
	"carechat/internal/config"
	"carechat/internal/core"
	"carechat/internal/store"
)

// guidanceDocuments is the fixed medical-guidance corpus seeded into the
// document store on first start.
var guidanceDocuments = []string{
	"Maintain a balanced diet rich in fruits, vegetables, and lean proteins.",
	"Stay well-hydrated by drinking plenty of water throughout the day.",
	"If you're experiencing nausea, try eating small, frequent meals.",
	"Avoid raw or undercooked foods to minimize the risk of infection.",
	"If you are having trouble eating, consult a dietician for meal replacement options.",
	"Take all medications as prescribed and report any side effects immediately.",
	"Do not stop or change medication without consulting your doctor.",
	"Attend all scheduled appointments for treatments and follow-up care.",
	"Contact us immediately for unusual symptoms like fever, chills, or severe pain.",
	"Inform all doctors about current medications, including OTC drugs and supplements.",
}

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag to seed the guidance corpus and exit
	seedOnlyFlag := flag.Bool("seed", false, "Seed the guidance corpus and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, config.AppConfig.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service (embeddings, and answer generation if enabled)
	llmService, err := core.NewLLMService(config.AppConfig.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	defer llmService.Close()

	// Seed the guidance corpus. A no-op when the store already holds
	// chunks, so it is safe to run on every start.
	numSeeded, err := dbStore.SeedChunks(guidanceDocuments, llmService.Embed)
	if err != nil {
		log.Fatalf("Guidance corpus seeding failed: %v", err)
	}
	if numSeeded > 0 {
		log.Printf("Seeding complete. Inserted %d chunks.", numSeeded)
	}
	if *seedOnlyFlag {
		log.Println("Seed flag set, exiting.")
		os.Exit(0)
	}

	// Initialize retrieval service; the generator is a capability flag,
	// not a second code path.
	var generator core.Generator
	if config.AppConfig.GenerateAnswers {
		generator = llmService
		log.Println("Answer generation enabled")
	}
	retrievalService := core.NewRetrievalService(llmService, dbStore, generator, config.AppConfig.TopN)

	// Initialize session manager
	sessionManager := core.NewSessionManager(llmService, dbStore, retrievalService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(sessionManager)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // embedding and generation calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
