package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "linkedai"
)

type Config struct {
	MaxIterations int               `mapstructure:"max-iterations"`
	SystemPrompt  string            `mapstructure:"system-prompt"`
	Resume        string            `mapstructure:"resume"`
	Gemini        *GeminiConfig     `mapstructure:"gemini"`
	Embeddings    *EmbeddingsConfig `mapstructure:"embeddings"`
	Qdrant        *QdrantConfig     `mapstructure:"qdrant"`
	Server        *ServerConfig     `mapstructure:"server"`
	Transcript    *TranscriptConfig `mapstructure:"transcript"`
	Ingest        *IngestConfig     `mapstructure:"ingest"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" json:"-"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type EmbeddingsConfig struct {
	Provider string        `mapstructure:"provider"`
	Ollama   *OllamaConfig `mapstructure:"ollama"`
}

type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type TranscriptConfig struct {
	Path string `mapstructure:"path"`
}

type IngestConfig struct {
	BatchSize        int      `mapstructure:"batch-size"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	ExcludeFile      string   `mapstructure:"exclude-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "linkedai is a conversational assistant for searching jobs and tailoring a resume to them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnv("gemini.api-key", "GEMINI_API_KEY")
	bindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE")
	bindEnv("resume", "LINKEDAI_RESUME")

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is linkedai.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

func setDefaults() {
	viper.SetDefault("max-iterations", 3)
	viper.SetDefault("resume", "resume.txt")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.embedding-model", "gemini-embedding-001")
	viper.SetDefault("gemini.max-retries", 3)
	viper.SetDefault("gemini.max-log-length", 200)
	viper.SetDefault("embeddings.provider", "gemini")
	viper.SetDefault("embeddings.ollama.host", "http://localhost:11434")
	viper.SetDefault("embeddings.ollama.model", "nomic-embed-text")
	viper.SetDefault("qdrant.host", "localhost")
	viper.SetDefault("qdrant.port", 6334)
	viper.SetDefault("qdrant.collection", "jobs")
	viper.SetDefault("server.listen", "127.0.0.1:7860")
	viper.SetDefault("ingest.batch-size", 64)
}

func initConfig() {
	// .env is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Every setting has a default, so only an explicitly given or broken config is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
