// Package config loads engine configuration from YAML files, .env files,
// environment variables, and the OS keychain for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/sherlockintel/sherlock/internal/errors"
)

// Config holds all configuration settings for the engine.
type Config struct {
	// Ingestion settings
	Ingestion IngestionConfig `yaml:"ingestion" mapstructure:"ingestion"`

	// Analysis thresholds shared by linking, patterns, and entities
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`

	// Graph store (Neo4j)
	Graph GraphConfig `yaml:"graph" mapstructure:"graph"`

	// Vector store and embeddings
	Vector VectorConfig `yaml:"vector" mapstructure:"vector"`

	// Compliance gate thresholds
	Compliance ComplianceConfig `yaml:"compliance" mapstructure:"compliance"`

	// Storage locations (ledger, investigations, reports, memory)
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Pipeline behavior
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`

	// Optional LLM narrative generation
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

type IngestionConfig struct {
	UploadsPath         string   `yaml:"uploads_path" mapstructure:"uploads_path"`
	SupportedExtensions []string `yaml:"supported_extensions" mapstructure:"supported_extensions"`
	MaxFileSizeMB       int64    `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	OCRLanguages        []string `yaml:"ocr_languages" mapstructure:"ocr_languages"`
	TesseractPath       string   `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	NERModels           []string `yaml:"ner_models" mapstructure:"ner_models"`
}

type AnalysisConfig struct {
	EntityTypes         []string `yaml:"entity_types" mapstructure:"entity_types"`
	MinEntityConfidence float64  `yaml:"min_entity_confidence" mapstructure:"min_entity_confidence"`
	SimilarityThreshold float64  `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MinSharedEntities   int      `yaml:"min_shared_entities" mapstructure:"min_shared_entities"`
	MaxLinksPerDocument int      `yaml:"max_links_per_document" mapstructure:"max_links_per_document"`
	OutlierThreshold    float64  `yaml:"outlier_threshold" mapstructure:"outlier_threshold"`
	MinClusterSize      int      `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
}

type GraphConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
}

type VectorConfig struct {
	Host              string `yaml:"host" mapstructure:"host"`
	Port              int    `yaml:"port" mapstructure:"port"`
	Collection        string `yaml:"collection" mapstructure:"collection"`
	LocalPath         string `yaml:"local_path" mapstructure:"local_path"`
	EmbeddingProvider string `yaml:"embedding_provider" mapstructure:"embedding_provider"` // "local" or "openai"
	EmbeddingModel    string `yaml:"embedding_model" mapstructure:"embedding_model"`
	TopK              int    `yaml:"top_k" mapstructure:"top_k"`
}

type ComplianceConfig struct {
	DriftValid        float64 `yaml:"drift_valid" mapstructure:"drift_valid"`
	DriftReview       float64 `yaml:"drift_review" mapstructure:"drift_review"`
	FidelityValid     float64 `yaml:"fidelity_valid" mapstructure:"fidelity_valid"`
	FidelityReview    float64 `yaml:"fidelity_review" mapstructure:"fidelity_review"`
	RCFValid          float64 `yaml:"rcf_valid" mapstructure:"rcf_valid"`
	BiasMinHypotheses int     `yaml:"bias_min_hypotheses" mapstructure:"bias_min_hypotheses"`
}

type StorageConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	LedgerType    string `yaml:"ledger_type" mapstructure:"ledger_type"` // "sqlite", "postgres"
	LedgerPath    string `yaml:"ledger_path" mapstructure:"ledger_path"`
	PostgresDSN   string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	ReportsDir    string `yaml:"reports_dir" mapstructure:"reports_dir"`
	QuarantineDir string `yaml:"quarantine_dir" mapstructure:"quarantine_dir"`
	MemoryDir     string `yaml:"memory_dir" mapstructure:"memory_dir"`
	CheckpointDir string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
}

type PipelineConfig struct {
	InterruptBeforeGate bool `yaml:"interrupt_before_gate" mapstructure:"interrupt_before_gate"`
	Monitored           bool `yaml:"monitored" mapstructure:"monitored"`
	MaxWorkers          int  `yaml:"max_workers" mapstructure:"max_workers"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "openai", "gemini", ""
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	RatePerMin  int     `yaml:"rate_per_min" mapstructure:"rate_per_min"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".sherlock")
	return &Config{
		Ingestion: IngestionConfig{
			UploadsPath: "uploads",
			SupportedExtensions: []string{
				".pdf", ".docx", ".doc", ".txt", ".xlsx", ".xls", ".csv",
				".json", ".xml", ".html", ".eml", ".msg",
				".png", ".jpg", ".jpeg", ".mp3", ".wav",
			},
			MaxFileSizeMB: 100,
			OCRLanguages:  []string{"por", "eng"},
		},
		Analysis: AnalysisConfig{
			EntityTypes: []string{
				"PERSON", "ORG", "GPE", "LOC", "DATE", "MONEY", "PERCENT",
				"EMAIL", "PHONE", "CPF", "CNPJ",
			},
			MinEntityConfidence: 0.5,
			SimilarityThreshold: 0.75,
			MinSharedEntities:   2,
			MaxLinksPerDocument: 50,
			OutlierThreshold:    3.0,
			MinClusterSize:      3,
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "sherlock123",
			Database: "neo4j",
		},
		Vector: VectorConfig{
			Host:              "localhost",
			Port:              8000,
			Collection:        "sherlock_documents",
			LocalPath:         filepath.Join(base, "vectors.db"),
			EmbeddingProvider: "local",
			EmbeddingModel:    "text-embedding-3-small",
			TopK:              10,
		},
		Compliance: ComplianceConfig{
			DriftValid:        0.05,
			DriftReview:       0.10,
			FidelityValid:     0.99,
			FidelityReview:    0.95,
			RCFValid:          0.95,
			BiasMinHypotheses: 3,
		},
		Storage: StorageConfig{
			DataDir:       base,
			LedgerType:    "sqlite",
			LedgerPath:    filepath.Join(base, "ledger.db"),
			ReportsDir:    filepath.Join(base, "reports"),
			QuarantineDir: filepath.Join(base, "quarantine"),
			MemoryDir:     filepath.Join(base, "memory"),
		},
		Pipeline: PipelineConfig{
			InterruptBeforeGate: true,
			Monitored:           true,
			MaxWorkers:          4,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			RatePerMin:  30,
			Temperature: 0.2,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from file, env files, and the environment.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("ingestion", cfg.Ingestion)
	v.SetDefault("analysis", cfg.Analysis)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("vector", cfg.Vector)
	v.SetDefault("compliance", cfg.Compliance)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("pipeline", cfg.Pipeline)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix("SHERLOCK")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".sherlock")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".sherlock"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// missing config file is fine, defaults apply
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks the settings that are fatal at startup.
func (c *Config) Validate() error {
	if c.Ingestion.UploadsPath == "" {
		return apperrors.ConfigError("uploads path is required")
	}
	if c.Storage.LedgerType != "sqlite" && c.Storage.LedgerType != "postgres" {
		return apperrors.ConfigErrorf("unknown ledger type %q", c.Storage.LedgerType)
	}
	if c.Storage.LedgerType == "postgres" && c.Storage.PostgresDSN == "" {
		return apperrors.ConfigError("postgres ledger requires a DSN")
	}
	if p := c.Vector.EmbeddingProvider; p != "local" && p != "openai" {
		return apperrors.ConfigErrorf("unknown embedding provider %q", p)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".sherlock", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies well-known environment variables on top of the
// file values. Precedence for secrets: env var, then OS keychain, then file.
func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("UPLOADS_PATH"); path != "" {
		cfg.Ingestion.UploadsPath = expandPath(path)
	}
	if size := os.Getenv("MAX_FILE_SIZE_MB"); size != "" {
		if mb, err := strconv.ParseInt(size, 10, 64); err == nil {
			cfg.Ingestion.MaxFileSizeMB = mb
		}
	}

	// Graph store
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
		cfg.Graph.Enabled = true
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		cfg.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Graph.Database = db
	}

	// Vector store
	if host := os.Getenv("CHROMA_HOST"); host != "" {
		cfg.Vector.Host = host
	}
	if port := os.Getenv("CHROMA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Vector.Port = p
		}
	}
	if coll := os.Getenv("CHROMA_COLLECTION"); coll != "" {
		cfg.Vector.Collection = coll
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		cfg.Vector.EmbeddingProvider = strings.ToLower(provider)
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.Vector.EmbeddingModel = model
	}

	// LLM. Env var beats keychain beats config file.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = "openai"
		}
		if cfg.Vector.EmbeddingProvider == "local" {
			cfg.Vector.EmbeddingProvider = "openai"
		}
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
		cfg.LLM.Provider = "gemini"
	} else if cfg.LLM.APIKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if stored, err := km.GetAPIKey(); err == nil && stored != "" {
				cfg.LLM.APIKey = stored
				if cfg.LLM.Provider == "" {
					cfg.LLM.Provider = "openai"
				}
			}
		}
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}

	// Storage
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
		cfg.Storage.LedgerType = "postgres"
	}
	if path := os.Getenv("LEDGER_PATH"); path != "" {
		cfg.Storage.LedgerPath = expandPath(path)
	}
	if dir := os.Getenv("CHECKPOINT_DIR"); dir != "" {
		cfg.Storage.CheckpointDir = expandPath(dir)
	}
	if dir := os.Getenv("REPORTS_DIR"); dir != "" {
		cfg.Storage.ReportsDir = expandPath(dir)
	}

	// Pipeline
	if v := os.Getenv("INTERRUPT_BEFORE_ODOS"); v != "" {
		cfg.Pipeline.InterruptBeforeGate = v == "true" || v == "1"
	}
	if v := os.Getenv("SHERLOCK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("ingestion", c.Ingestion)
	v.Set("analysis", c.Analysis)
	v.Set("graph", c.Graph)
	v.Set("vector", c.Vector)
	v.Set("compliance", c.Compliance)
	v.Set("storage", c.Storage)
	v.Set("pipeline", c.Pipeline)
	v.Set("llm", c.LLM)
	v.Set("log_level", c.LogLevel)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
