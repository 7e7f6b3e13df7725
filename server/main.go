package main

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// main wires the one canonical entrypoint for the process, collapsing the
// teacher's split between a standalone dev binary (server/main.go) and a
// separately flagged production binary (server_main/main.go) into a single
// Config surface (spec 6, DESIGN.md).
func main() {
	cfg := ParseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	hub := NewHub(cfg)
	go hub.Run()

	serveMetrics(cfg.MetricsPort)

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	router.Get("/", hub.ServeIndex)
	router.Get("/ws", hub.ServeSocket)

	log.Println("arena server listening on", fmt.Sprint(":", cfg.Port))
	log.Fatal(http.ListenAndServe(fmt.Sprint(":", cfg.Port), router))
}
