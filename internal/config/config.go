package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey    string
	DatabaseURL     string
	HTTPPort        string
	LogLevel        string
	EmbeddingDim    int
	TopN            int
	GenerateAnswers bool
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "carechat.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		EmbeddingDim:    getEnvAsInt("EMBEDDING_DIM", 768),
		TopN:            getEnvAsInt("TOP_N", 3),
		GenerateAnswers: getEnvAsBool("GENERATE_ANSWERS", false),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.EmbeddingDim <= 0 {
		log.Fatal("EMBEDDING_DIM must be a positive integer")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
