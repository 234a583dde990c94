// Command server runs the content-indexing HTTP service: ingest, search,
// document/render endpoints, and the conversational agent.
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/alpinesboltltd/docwell/internal/app"
	"github.com/alpinesboltltd/docwell/internal/config"
	"github.com/alpinesboltltd/docwell/internal/render"
)

func main() {
	godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// No PDF rasterizer is wired into this build; ingest fails fast until
	// one is deployed behind render.Renderer. Every other route works.
	if err := app.Run(cfg, render.Unconfigured{}); err != nil {
		log.Fatalf("server: %v", err)
	}
}
