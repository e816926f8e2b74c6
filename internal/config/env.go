package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey   string
	EmbedModel string
	GenModel   string

	CachePath         string
	CacheTTLSeconds   int
	EmbeddingTTL      int
	ContextTTLSeconds int

	DatabaseURL string // optional; enables the pgvector searcher

	GatewayEndpoint string
	GatewayAPIKey   string
	SenderNumber    string

	IngestWorkers   int
	BackfillOnStart bool
	Port            string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "asistente-docs"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),

		CachePath:         getEnv("CACHE_PATH", "./data/cache"),
		CacheTTLSeconds:   getEnvInt("CACHE_TTL", 3600),
		EmbeddingTTL:      getEnvInt("EMBEDDING_CACHE_TTL", 86400),
		ContextTTLSeconds: getEnvInt("CONTEXT_TTL", 86400),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GatewayEndpoint: getEnv("WHATSAPP_ENDPOINT", ""),
		GatewayAPIKey:   getEnv("WHATSAPP_API_KEY", ""),
		SenderNumber:    getEnv("SENDER_NUMBER", ""),

		IngestWorkers:   getEnvInt("INGEST_WORKERS", 4),
		BackfillOnStart: getEnv("BACKFILL_ON_START", "false") == "true",
		Port:            getEnv("PORT", "8080"),
	}

	if cfg.AIAPIKey == "" {
		log.Println("WARN: GEMINI_API_KEY not set; provider calls will fail")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
