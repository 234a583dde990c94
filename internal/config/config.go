// Package config defines process-wide configuration, loaded once at
// startup from the environment and passed explicitly to every component
// that needs it.
package config

import "github.com/kelseyhightower/envconfig"

// Config holds every tunable named in the service's operating contract.
// It is loaded once with Load and never mutated afterwards. Field tags
// use envconfig's separate envconfig:"NAME"/default:"..."/required:"true"
// keys rather than the single combined env:"NAME,default=...,required"
// form other libraries use — kelseyhightower/envconfig only reads the
// former.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Credentials
	GCPProjectID                 string `envconfig:"GCP_PROJECT_ID"`
	GCPLocation                  string `envconfig:"GCP_LOCATION" default:"us-central1"`
	GoogleApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleAPIKey                 string `envconfig:"GOOGLE_API_KEY" required:"true"`
	GeminiAPIKey                 string `envconfig:"GEMINI_API_KEY"`

	// Paths
	DataDir          string `envconfig:"DATA_DIR" default:"./data"`
	DBPath           string `envconfig:"DB_PATH" default:"./data/content.db"`
	ChatDBPath       string `envconfig:"CHAT_DB_PATH" default:"./data/chat_history.db"`
	PDFsDir          string `envconfig:"PDFS_DIR" default:"./data/pdfs"`
	PagesDir         string `envconfig:"PAGES_DIR" default:"./data/pages"`
	CropsDir         string `envconfig:"CROPS_DIR" default:"./data/crops"`
	ChromaPersistDir string `envconfig:"CHROMA_PERSIST_DIR" default:"./data/vectors"`

	// Ingest tuning
	OCRBatchSize     int `envconfig:"OCR_BATCH_SIZE" default:"12"`
	OCRMaxQueueSize  int `envconfig:"OCR_MAX_QUEUE_SIZE" default:"24"`
	PDFRenderDPI     int `envconfig:"PDF_RENDER_DPI" default:"144"`
	DetectionWorkers int `envconfig:"DETECTION_WORKERS" default:"5"`

	// Embedding / vector store
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"1408"`
	VectorStoreBackend string `envconfig:"VECTOR_STORE_BACKEND" default:"memory"`

	// Detector prompts. Left blank by default; Load fills in the
	// production prompt text since envconfig struct-tag defaults can't
	// hold commas or newlines.
	BoundingBoxSystemInstructions string `envconfig:"BOUNDING_BOX_SYSTEM_INSTRUCTIONS"`
	PDFSpatialInstructions        string `envconfig:"PDF_SPATIAL_INSTRUCTIONS"`

	// Generative models
	DetectorModel  string `envconfig:"DETECTOR_MODEL" default:"gemini-2.0-flash"`
	EmbedModel     string `envconfig:"EMBED_MODEL" default:"multimodalembedding@001"`
	AgentModel     string `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	WebSearchModel string `envconfig:"WEB_SEARCH_MODEL" default:"gemini-2.0-flash"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Vector store backend identifiers.
const (
	VectorStoreMemory  = "memory"
	VectorStoreChromem = "chromem"
)

const defaultBoundingBoxInstructions = `Return a JSON array of objects, each with "label" (string) and ` +
	`"box_2d" (array of four ints: y0, x0, y1, x1 in pixel space). Return at ` +
	`most 25 items. Do not wrap the array in markdown fences and do not ` +
	`return masks or any field besides label and box_2d.`

const defaultSpatialInstructions = `Coordinates are in the original raster image's pixel space, ordered ` +
	`[y0, x0, y1, x1], top-left origin.`

// Load reads Config from the environment via envconfig and fills in the
// handful of defaults that can't be expressed as struct-tag literals.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BoundingBoxSystemInstructions == "" {
		cfg.BoundingBoxSystemInstructions = defaultBoundingBoxInstructions
	}
	if cfg.PDFSpatialInstructions == "" {
		cfg.PDFSpatialInstructions = defaultSpatialInstructions
	}
	return &cfg, nil
}
