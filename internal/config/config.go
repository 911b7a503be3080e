package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Models  ModelsConfig  `koanf:"models" yaml:"models"`
	Modes   ModesConfig   `koanf:"modes" yaml:"modes"`
	Chat    ChatConfig    `koanf:"chat" yaml:"chat"`
	Agent   AgentConfig   `koanf:"agent" yaml:"agent"`
	Actions ActionsConfig `koanf:"actions" yaml:"actions"`
	Ingress IngressConfig `koanf:"ingress" yaml:"ingress"`
	Prompts PromptsConfig `koanf:"prompts" yaml:"prompts"`
}

type ServerConfig struct {
	LogLevel string `koanf:"log_level" yaml:"log_level"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default" yaml:"default"`
	Fallback            string          `koanf:"fallback" yaml:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts" yaml:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry" yaml:"registry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name" yaml:"name"`
	Provider string `koanf:"provider" yaml:"provider"`
	BaseURL  string `koanf:"base_url" yaml:"base_url"`
	APIKey   string `koanf:"api_key" yaml:"api_key"`
}

type ModesConfig struct {
	Default     string   `koanf:"default" yaml:"default"`
	Enabled     []string `koanf:"enabled" yaml:"enabled"`
	LogSwitches bool     `koanf:"log_switches" yaml:"log_switches"`
}

type ChatConfig struct {
	CommandPrefix       string `koanf:"command_prefix" yaml:"command_prefix"`
	HelpCommand         string `koanf:"help_command" yaml:"help_command"`
	TranscriptLimit     int    `koanf:"transcript_limit" yaml:"transcript_limit"`
	ContextMessages     int    `koanf:"context_messages" yaml:"context_messages"`
	DiscardStaleResults bool   `koanf:"discard_stale_results" yaml:"discard_stale_results"`
}

type AgentConfig struct {
	MaxActionsPerTurn int      `koanf:"max_actions_per_turn" yaml:"max_actions_per_turn"`
	ConfirmKinds      []string `koanf:"confirm_kinds" yaml:"confirm_kinds"`
	BlockedKinds      []string `koanf:"blocked_kinds" yaml:"blocked_kinds"`
}

type ActionsConfig struct {
	Workdir        string `koanf:"workdir" yaml:"workdir"`
	ShellTimeout   string `koanf:"shell_timeout" yaml:"shell_timeout"`
	MaxOutputBytes int    `koanf:"max_output_bytes" yaml:"max_output_bytes"`
}

type IngressConfig struct {
	QueueSize     int    `koanf:"queue_size" yaml:"queue_size"`
	SubmitTimeout string `koanf:"submit_timeout" yaml:"submit_timeout"`
	DrainTimeout  string `koanf:"drain_timeout" yaml:"drain_timeout"`
}

type PromptsConfig struct {
	Ask      AskPromptConfig      `koanf:"ask" yaml:"ask"`
	Reasoner ReasonerPromptConfig `koanf:"reasoner" yaml:"reasoner"`
}

type AskPromptConfig struct {
	System string `koanf:"system" yaml:"system"`
}

type ReasonerPromptConfig struct {
	System string `koanf:"system" yaml:"system"`
	Output string `koanf:"output" yaml:"output"`
}

const (
	DefaultServerLogLevel            = "info"
	DefaultModelDefault              = "gpt-4o-mini"
	DefaultModelFallback             = ""
	DefaultModelMaxFallbackAttempts  = 2
	DefaultOpenAIBaseURL             = "https://api.openai.com/v1"
	DefaultOllamaBaseURL             = "http://localhost:11434/v1"
	DefaultOllamaAPIKey              = "ollama"
	DefaultModesDefault              = "ask"
	DefaultModesLogSwitches          = true
	DefaultChatCommandPrefix         = "/"
	DefaultChatHelpCommand           = "help"
	DefaultChatTranscriptLimit       = 100
	DefaultChatContextMessages       = 20
	DefaultChatDiscardStaleResults   = false
	DefaultAgentMaxActionsPerTurn    = 5
	DefaultActionsWorkdir            = "."
	DefaultActionsShellTimeout       = "30s"
	DefaultActionsMaxOutputBytes     = 16 * 1024
	DefaultIngressQueueSize          = 32
	DefaultIngressSubmitTimeout      = "500ms"
	DefaultIngressDrainTimeout       = "5s"
	DefaultAskSystemPrompt           = "You are Sabaki, a helpful assistant. Answer conversationally. You cannot run actions in this mode."
	DefaultReasonerSystemPrompt      = "You are Sabaki's planning component. Turn the user's request into concrete actions on their workspace."
	DefaultReasonerOutputPrompt      = "Respond with a JSON object: {\"thought\": string, \"actions\": [{\"kind\": string, \"description\": string, \"args\": object}]}. Use an empty actions array when nothing needs to run. Do not include other text."
	DefaultConfigDirName             = ".sabaki"
	DefaultConfigFileName            = "config.yaml"
	DefaultEnvPrefix                 = "SABAKI_"
	DefaultAgentConfirmKind          = "shell"
)

// DefaultModesEnabled lists the handlers assembled when the config does not say otherwise.
var DefaultModesEnabled = []string{"ask", "edit", "agent"}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":             DefaultServerLogLevel,
		"models.default":               DefaultModelDefault,
		"models.fallback":              DefaultModelFallback,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "openai"},
			{Name: "local-llama", Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
		},
		"modes.default":               DefaultModesDefault,
		"modes.enabled":               DefaultModesEnabled,
		"modes.log_switches":          DefaultModesLogSwitches,
		"chat.command_prefix":         DefaultChatCommandPrefix,
		"chat.help_command":           DefaultChatHelpCommand,
		"chat.transcript_limit":       DefaultChatTranscriptLimit,
		"chat.context_messages":       DefaultChatContextMessages,
		"chat.discard_stale_results":  DefaultChatDiscardStaleResults,
		"agent.max_actions_per_turn":  DefaultAgentMaxActionsPerTurn,
		"agent.confirm_kinds":         []string{DefaultAgentConfirmKind},
		"agent.blocked_kinds":         []string{},
		"actions.workdir":             DefaultActionsWorkdir,
		"actions.shell_timeout":       DefaultActionsShellTimeout,
		"actions.max_output_bytes":    DefaultActionsMaxOutputBytes,
		"ingress.queue_size":          DefaultIngressQueueSize,
		"ingress.submit_timeout":      DefaultIngressSubmitTimeout,
		"ingress.drain_timeout":       DefaultIngressDrainTimeout,
		"prompts.ask.system":          DefaultAskSystemPrompt,
		"prompts.reasoner.system":     DefaultReasonerSystemPrompt,
		"prompts.reasoner.output":     DefaultReasonerOutputPrompt,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, DefaultConfigDirName, DefaultConfigFileName)
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// SABAKI_CHAT__TRANSCRIPT_LIMIT -> chat.transcript_limit
	k.Load(env.Provider(DefaultEnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, DefaultEnvPrefix))
		return strings.Replace(key, "__", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	workdir, err := expandPath(cfg.Actions.Workdir)
	if err != nil {
		return nil, err
	}
	if workdir != "" {
		cfg.Actions.Workdir = workdir
	}

	injectProviderKey(&cfg, "openai", os.Getenv("OPENAI_API_KEY"))
	injectProviderKey(&cfg, "anthropic", os.Getenv("ANTHROPIC_API_KEY"))
	injectProviderKey(&cfg, "gemini", os.Getenv("GEMINI_API_KEY"))

	return &cfg, nil
}

func injectProviderKey(cfg *Config, provider string, key string) {
	if key == "" {
		return
	}
	for i, m := range cfg.Models.Registry {
		if m.Provider == provider && m.APIKey == "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}
