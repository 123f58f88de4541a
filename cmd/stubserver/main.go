// Command stubserver is an in-memory stand-in for the Stadtwache backend,
// implementing the documented contract so the client can be developed and
// demonstrated without the production system. It is a development tool,
// not a backend implementation: nothing is persisted.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"stadtwache/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8001", "listen address")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: "debug"})
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	secret := os.Getenv("STUB_JWT_SECRET")
	if secret == "" {
		secret = "stadtwache-dev-secret"
	}

	srv := newServer([]byte(secret), log)
	srv.seedAdmin(os.Getenv("STUB_ADMIN_PASSWORD"))

	log.Info("stub backend listening", zap.String("addr", *addr))
	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
