package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. HAQIBA_READER_MARGIN.
const EnvPrefix = "HAQIBA"

type Config struct {
	Env     string
	DataDir string
	Mongo   MongoConfig
	Gemini  GeminiConfig
	Reader  ReaderConfig
}

// MongoConfig enables cloud sync of reading positions when URI is set.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

type ReaderConfig struct {
	FetchTimeout      time.Duration // 0 disables
	MaxDocumentBytes  int64
	Margin            float64
	ZoomStep          float64
	DoubleTapInterval time.Duration
	ConfirmDelay      time.Duration
	CaptureQuality    int
	CaptureMaxWidth   int
	MaxSurfacePixels  int
}

// DBPath is the SQLite file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "haqiba.db")
}

// Load reads configuration from the working directory and the environment.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom is Load with .env.<env> looked up in dir. Variables already in
// the environment win over the file.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToLower(os.Getenv(EnvPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}

	// load .env.<env> if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(dir, ".env."+env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config.os.Stat(%s): %w", dotEnvPath, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{
		Env:     env,
		DataDir: v.GetString("dataDir"),
		Mongo: MongoConfig{
			URI:        v.GetString("mongo.uri"),
			Database:   v.GetString("mongo.database"),
			Collection: v.GetString("mongo.collection"),
		},
		Gemini: GeminiConfig{
			APIKey:      v.GetString("gemini.apiKey"),
			Model:       v.GetString("gemini.model"),
			Temperature: v.GetFloat64("gemini.temperature"),
		},
		Reader: ReaderConfig{
			FetchTimeout:      v.GetDuration("reader.fetchTimeout"),
			MaxDocumentBytes:  v.GetInt64("reader.maxDocumentBytes"),
			Margin:            v.GetFloat64("reader.margin"),
			ZoomStep:          v.GetFloat64("reader.zoomStep"),
			DoubleTapInterval: v.GetDuration("reader.doubleTapInterval"),
			ConfirmDelay:      v.GetDuration("reader.confirmDelay"),
			CaptureQuality:    v.GetInt("reader.captureQuality"),
			CaptureMaxWidth:   v.GetInt("reader.captureMaxWidth"),
			MaxSurfacePixels:  v.GetInt("reader.maxSurfacePixels"),
		},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	v.SetDefault("dataDir", filepath.Join(homeDir, ".local", "share", "haqiba"))

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "haqiba")
	v.SetDefault("mongo.collection", "settings")

	v.SetDefault("gemini.apiKey", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.temperature", 0.4)

	v.SetDefault("reader.fetchTimeout", 60*time.Second)
	v.SetDefault("reader.maxDocumentBytes", int64(200<<20))
	v.SetDefault("reader.margin", 32.0)
	v.SetDefault("reader.zoomStep", 1.25)
	v.SetDefault("reader.doubleTapInterval", 300*time.Millisecond)
	v.SetDefault("reader.confirmDelay", 2*time.Second)
	v.SetDefault("reader.captureQuality", 60)
	v.SetDefault("reader.captureMaxWidth", 1600)
	v.SetDefault("reader.maxSurfacePixels", 16_000_000)
}

// Validate rejects values the reader cannot work with.
func (c *Config) Validate() error {
	r := c.Reader
	switch {
	case c.DataDir == "":
		return errors.New("config: dataDir is empty")
	case r.ZoomStep <= 1:
		return fmt.Errorf("config: reader.zoomStep must be greater than 1, got %v", r.ZoomStep)
	case r.CaptureQuality < 1 || r.CaptureQuality > 100:
		return fmt.Errorf("config: reader.captureQuality must be within 1..100, got %d", r.CaptureQuality)
	case r.Margin < 0:
		return fmt.Errorf("config: reader.margin must not be negative, got %v", r.Margin)
	case r.FetchTimeout < 0 || r.DoubleTapInterval < 0 || r.ConfirmDelay < 0:
		return errors.New("config: reader durations must not be negative")
	case r.MaxDocumentBytes < 0 || r.CaptureMaxWidth < 0 || r.MaxSurfacePixels < 0:
		return errors.New("config: reader limits must not be negative")
	case c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2:
		return fmt.Errorf("config: gemini.temperature must be within 0..2, got %v", c.Gemini.Temperature)
	}
	return nil
}
