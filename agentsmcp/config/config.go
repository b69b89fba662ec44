package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/agents-mcp/agentsmcp"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Agent    AgentConfig              `mapstructure:"agent"`
	Prompts  PromptsConfig            `mapstructure:"prompts"`
	Bindings map[string]BindingConfig `mapstructure:"bindings"`
	Journal  JournalConfig            `mapstructure:"journal"`
	Log      LogConfig                `mapstructure:"log"`
}

// ServerConfig describes the MCP endpoint.
type ServerConfig struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	Transport string `mapstructure:"transport"` // "stdio" | "sse"
	Address   string `mapstructure:"address"`   // listen address for sse
	BaseURL   string `mapstructure:"base_url"`  // public base URL advertised by sse
}

// AgentConfig describes how the external agent executable is invoked.
type AgentConfig struct {
	Command        string        `mapstructure:"command"`
	Args           []string      `mapstructure:"args"`        // leading args, before model and prompt
	ModelFlag      string        `mapstructure:"model_flag"`  // flag preceding the model id
	PromptFlag     string        `mapstructure:"prompt_flag"` // flag preceding the rendered prompt
	Env            []string      `mapstructure:"env"`         // extra KEY=VALUE pairs
	Timeout        time.Duration `mapstructure:"timeout"`     // 0 disables the per-invocation deadline
	KillGrace      time.Duration `mapstructure:"kill_grace"`
	MaxOutputBytes int           `mapstructure:"max_output_bytes"` // per stream
}

// PromptsConfig locates templates and shapes the rendered input section.
type PromptsConfig struct {
	ProjectRoot string `mapstructure:"project_root"`
	InputHeader string `mapstructure:"input_header"`
}

// BindingConfig overrides the model or template bound to an operation.
type BindingConfig struct {
	Model    string `mapstructure:"model"`
	Template string `mapstructure:"template"`
}

// JournalConfig locates the invocation journal. An empty URL disables it.
type JournalConfig struct {
	URL string `mapstructure:"url"` // e.g. file:./agents-mcp.db
}

// LogConfig controls the zerolog output on stderr.
type LogConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"` // "json" | "console"
	EnableTracing bool   `mapstructure:"enable_tracing"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.EnvPrefix)
	v.AutomaticEnv()
	// agent.max_output_bytes becomes AGENTS_MCP_AGENT_MAX_OUTPUT_BYTES
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", internal.DefaultServerName)
	v.SetDefault("server.version", internal.DefaultServerVersion)
	v.SetDefault("server.transport", internal.DefaultTransport)
	v.SetDefault("server.address", internal.DefaultAddress)
	v.SetDefault("server.base_url", "")

	v.SetDefault("agent.command", internal.DefaultAgentCommand)
	v.SetDefault("agent.args", internal.DefaultAgentArgs)
	v.SetDefault("agent.model_flag", internal.DefaultModelFlag)
	v.SetDefault("agent.prompt_flag", internal.DefaultPromptFlag)
	v.SetDefault("agent.env", []string{})
	v.SetDefault("agent.timeout", "0s")
	v.SetDefault("agent.kill_grace", "5s")
	v.SetDefault("agent.max_output_bytes", internal.DefaultMaxOutputBytes)

	v.SetDefault("prompts.project_root", ".")
	v.SetDefault("prompts.input_header", internal.DefaultInputHeader)

	v.SetDefault("journal.url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.enable_tracing", true)
}

// Validate rejects values that would make every invocation fail.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unsupported server transport %q", c.Server.Transport)
	}
	if strings.TrimSpace(c.Agent.Command) == "" {
		return errors.New("agent.command must not be empty")
	}
	if c.Agent.MaxOutputBytes <= 0 {
		return fmt.Errorf("agent.max_output_bytes must be positive, got %d", c.Agent.MaxOutputBytes)
	}
	if c.Agent.Timeout < 0 || c.Agent.KillGrace < 0 {
		return errors.New("agent durations must not be negative")
	}
	return nil
}
