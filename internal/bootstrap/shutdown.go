package bootstrap

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weathercache/internal/scheduler"
)

// GracefulShutdown waits for SIGINT or SIGTERM, then stops the warmer,
// drains the HTTP server and closes the bundle. done is closed afterwards.
func GracefulShutdown(srv *http.Server, warmer *scheduler.Warmer, bundle *Bundle) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down gracefully...")

		if warmer != nil {
			warmer.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		if bundle != nil {
			bundle.Close()
		}
	}()
	return done
}
