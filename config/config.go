// Package config layers defaults, an optional YAML file, and TRADUCTOR_*
// environment variables into a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TRADUCTOR"
	appDir    = "traductor"

	ModelDirName    = "vosk-model-small-en-us"
	DefaultModelURL = "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip"
)

type Config struct {
	Audio      Audio      `mapstructure:"audio"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Recognizer Recognizer `mapstructure:"recognizer"`
	Translate  Translate  `mapstructure:"translate"`
	Langs      Langs      `mapstructure:"langs"`
	OCR        OCR        `mapstructure:"ocr"`
	UI         UI         `mapstructure:"ui"`
	Resources  Resources  `mapstructure:"resources"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type Audio struct {
	Device    string `mapstructure:"device"`
	QueueSize int    `mapstructure:"queue_size"`
	BlockSize uint32 `mapstructure:"block_size"`
}

type Pipeline struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type Recognizer struct {
	Backend       string `mapstructure:"backend"`
	ModelPath     string `mapstructure:"model_path"`
	ModelURL      string `mapstructure:"model_url"`
	DeepgramKey   string `mapstructure:"deepgram_key"`
	DeepgramModel string `mapstructure:"deepgram_model"`
}

type Translate struct {
	Provider      string        `mapstructure:"provider"`
	OpenAIKey     string        `mapstructure:"openai_key"`
	OpenAIModel   string        `mapstructure:"openai_model"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type Langs struct {
	Audio  string `mapstructure:"audio"`
	OCR    string `mapstructure:"ocr"`
	Manual string `mapstructure:"manual"`
}

type OCR struct {
	Threshold     int    `mapstructure:"threshold"`
	TesseractCmd  string `mapstructure:"tesseract_cmd"`
	Lang          string `mapstructure:"lang"`
	DebugImage    string `mapstructure:"debug_image"`
	DefaultRegion string `mapstructure:"region"`
}

type UI struct {
	TextColor string  `mapstructure:"text_color"`
	Opacity   float64 `mapstructure:"opacity"`
	Expanded  bool    `mapstructure:"expanded"`
}

type Resources struct {
	Dir string `mapstructure:"dir"`
}

// Dir is the per-user directory holding config.yaml and downloaded models.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, appDir)
	}
	return appDir
}

func setDefaults(v *viper.Viper, backend string) {
	v.SetDefault("audio.device", "")
	v.SetDefault("audio.queue_size", 64)
	v.SetDefault("audio.block_size", 0)
	v.SetDefault("pipeline.debounce", 500*time.Millisecond)
	v.SetDefault("pipeline.poll_timeout", 100*time.Millisecond)
	v.SetDefault("recognizer.backend", backend)
	v.SetDefault("recognizer.model_path", "")
	v.SetDefault("recognizer.model_url", DefaultModelURL)
	v.SetDefault("recognizer.deepgram_key", "")
	v.SetDefault("recognizer.deepgram_model", "nova-3")
	v.SetDefault("translate.provider", "google")
	v.SetDefault("translate.openai_key", "")
	v.SetDefault("translate.openai_model", "")
	v.SetDefault("translate.openai_base_url", "")
	v.SetDefault("translate.timeout", 30*time.Second)
	v.SetDefault("langs.audio", "en:es")
	v.SetDefault("langs.ocr", "en:es")
	v.SetDefault("langs.manual", "es:en")
	v.SetDefault("ocr.threshold", 80)
	v.SetDefault("ocr.tesseract_cmd", "")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.debug_image", "")
	v.SetDefault("ocr.region", "")
	v.SetDefault("ui.text_color", "white")
	v.SetDefault("ui.opacity", 0.9)
	v.SetDefault("ui.expanded", false)
	v.SetDefault("resources.dir", Dir())
}

// Load reads path, or config.yaml in dir when path is empty. A missing
// default file is not an error; a missing explicit file is. backend is the
// recognizer used when none is configured.
func Load(path, dir, backend string) (*Config, error) {
	v := viper.New()
	setDefaults(v, backend)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("recognizer.deepgram_key", EnvPrefix+"_RECOGNIZER_DEEPGRAM_KEY", "DEEPGRAM_API_KEY")
	v.BindEnv("translate.openai_key", EnvPrefix+"_TRANSLATE_OPENAI_KEY", "OPENAI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Recognizer.ModelPath == "" {
		cfg.Recognizer.ModelPath = filepath.Join(cfg.Resources.Dir, ModelDirName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Audio.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("audio.queue_size must be positive, got %d", c.Audio.QueueSize))
	}
	if c.Pipeline.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.debounce must be positive, got %s", c.Pipeline.Debounce))
	}
	if c.Pipeline.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.poll_timeout must be positive, got %s", c.Pipeline.PollTimeout))
	}
	if c.OCR.Threshold < 0 || c.OCR.Threshold > 255 {
		errs = append(errs, fmt.Errorf("ocr.threshold must be within 0-255, got %d", c.OCR.Threshold))
	}
	if c.UI.Opacity < 0.1 || c.UI.Opacity > 1 {
		errs = append(errs, fmt.Errorf("ui.opacity must be within 0.1-1.0, got %g", c.UI.Opacity))
	}
	return errors.Join(errs...)
}
