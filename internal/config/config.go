package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the Alfred assistant
type Config struct {
	// Server configuration (serve mode only)
	Port     string `envconfig:"PORT" default:"8080"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"50051"` // gRPC health service

	// Assistant identity
	AssistantName string `envconfig:"ASSISTANT_NAME" default:"Alfred"`
	PersonaFile   string `envconfig:"PERSONA_FILE" default:""` // Overrides the built-in persona when set

	// Gemini chat configuration
	GeminiAPIKey      string  `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiTemperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.7"`

	// Deepgram STT and TTS configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`  // Language code (en, es, fr, etc.)
	DeepgramVoice    string `envconfig:"DEEPGRAM_VOICE" default:"aura-helios-en"`

	// TTS provider selection; "deepgram" or "cartesia". The other provider, when
	// configured, is used as a fallback.
	TTSProvider     string `envconfig:"TTS_PROVIDER" default:"deepgram"`
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaVoiceID string `envconfig:"CARTESIA_VOICE_ID" default:"63ff761f-c1e8-414b-b969-d1833d1c870c"`
	CartesiaModelID string `envconfig:"CARTESIA_MODEL_ID" default:"sonic-english"`

	// Capture device configuration
	CaptureCommand  string  `envconfig:"CAPTURE_COMMAND" default:"arecord -q -t raw -f S16_LE -c 1 -r 16000"` // Must emit mono S16LE PCM on stdout
	SampleRate      int     `envconfig:"SAMPLE_RATE" default:"16000"`                                         // Hz, must match CAPTURE_COMMAND
	ListenTimeout   int     `envconfig:"LISTEN_TIMEOUT" default:"5"`                                          // Seconds to wait for speech to start
	PhraseLimit     int     `envconfig:"PHRASE_LIMIT" default:"5"`                                            // Max seconds of one phrase
	HoldLimit       int     `envconfig:"HOLD_LIMIT" default:"60"`                                             // Max seconds of one press-and-hold recording
	AmbientDuration int     `envconfig:"AMBIENT_DURATION" default:"500"`                                      // Ambient noise calibration in milliseconds
	AmbientFactor   float64 `envconfig:"AMBIENT_FACTOR" default:"1.5"`                                        // Threshold multiplier over ambient RMS

	// Voice activity detection
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for VAD
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"40"`      // 20ms frames of silence to mark speech end
	VADPreroll         int     `envconfig:"VAD_PREROLL" default:"300"`            // Milliseconds kept before speech onset

	// Transcription strategy; "single" or "continuous"
	CaptureStrategy string `envconfig:"CAPTURE_STRATEGY" default:"single"`
	ChunkSeconds    int    `envconfig:"CHUNK_SECONDS" default:"3"`  // Window length in continuous mode
	SilenceLimit    int    `envconfig:"SILENCE_LIMIT" default:"10"` // Seconds of silence before continuous mode stops

	// Playback and artifacts
	PlayerCommand     string `envconfig:"PLAYER_COMMAND" default:""` // Detected from the OS when empty
	ArtifactDir       string `envconfig:"ARTIFACT_DIR" default:"outputs"`
	ArtifactRetention int    `envconfig:"ARTIFACT_RETENTION" default:"5"` // Seconds before a superseded reply is deleted
	LogDir            string `envconfig:"LOG_DIR" default:"logs"`         // Session transcript logs
	TurnTimeout       int    `envconfig:"TURN_TIMEOUT" default:"60"`      // Seconds for remote calls of one turn

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"3"`         // Attempts to open the capture device
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"500"`            // Device reopen backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"warn"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`      // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}

	switch c.TTSProvider {
	case "deepgram":
	case "cartesia":
		if c.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required when TTS_PROVIDER=cartesia")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider)
	}

	switch c.CaptureStrategy {
	case "single", "continuous":
	default:
		return fmt.Errorf("unknown CAPTURE_STRATEGY %q", c.CaptureStrategy)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}
	if c.ListenTimeout <= 0 || c.PhraseLimit <= 0 {
		return fmt.Errorf("LISTEN_TIMEOUT and PHRASE_LIMIT must be positive")
	}
	if strings.TrimSpace(c.CaptureCommand) == "" {
		return fmt.Errorf("CAPTURE_COMMAND is required")
	}
	return nil
}

// Persona returns the system instruction for the chat engine
func (c *Config) Persona() (string, error) {
	if c.PersonaFile == "" {
		return DefaultPersona, nil
	}
	data, err := os.ReadFile(c.PersonaFile)
	if err != nil {
		return "", fmt.Errorf("failed to read persona file: %w", err)
	}
	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", c.PersonaFile)
	}
	return persona, nil
}

// Seconds converts an integer seconds setting to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Millis converts an integer milliseconds setting to a duration
func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
