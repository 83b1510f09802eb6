// ============================================================================
// backend/cmd/server/main.go
// Grade service entry point
// ============================================================================

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sgms_backend/backend/internal/gateway"
	"sgms_backend/backend/internal/gateway/handlers"
	"sgms_backend/backend/internal/grades"
	"sgms_backend/backend/internal/shared"
	"sgms_backend/backend/internal/storage"
)

func main() {
	log.Println("Starting Grade Service...")

	// Step 1: Load environment variables
	shared.LoadEnv("")

	// Step 2: Load and validate configuration
	config, err := shared.LoadServiceConfig("grade-service")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := shared.ValidateServiceConfig(config); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if shared.IsDevelopment(config) {
		shared.PrintConfig(config)
	}

	// Step 3: Connect to MongoDB
	client, db, err := shared.ConnectMongoDB(&config.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := shared.DisconnectMongoDB(client); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	// Step 4: Ensure indexes (the unique grade identity index in particular)
	if err := shared.EnsureIndexes(context.Background(), db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	// Step 5: Wire stores, service, and router
	service := grades.NewService(
		storage.NewStudentStore(db),
		storage.NewAssignmentStore(db),
		storage.NewSchoolYearStore(db),
		storage.NewGradeStore(db),
		storage.NewAuditStore(db),
		config.Upload.SampleLimit,
	)
	gradeHandler := handlers.NewGradeHandler(service, config.Upload.MaxFileBytes)
	router := gateway.NewRouter(config, gradeHandler)

	// Step 6: Start the HTTP server
	server := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Grade Service listening on port %s", config.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Step 7: Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down Grade Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	log.Println("Grade Service stopped")
}
