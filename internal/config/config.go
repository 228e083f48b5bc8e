package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config is the application-level configuration: provider credentials,
// workspace location, server address, and logging. Runtime approval
// settings live separately (see SettingsStore) because the UI mutates them
// mid-session.
type Config struct {
	// Model is the Anthropic model ID used for turns.
	Model string `json:"model,omitempty"`
	// APIKey authenticates against the Anthropic API.
	APIKey string `json:"apiKey,omitempty"`
	// SystemPrompt is prepended to every turn.
	SystemPrompt string `json:"systemPrompt,omitempty"`
	// MaxTokens caps a single assistant message.
	MaxTokens int64 `json:"maxTokens,omitempty"`
	// Workspace is the root directory the agent operates on.
	Workspace string `json:"workspace,omitempty"`
	// DataDir holds session snapshots, queues, and settings.
	DataDir string `json:"dataDir,omitempty"`
	// Addr is the HTTP listen address.
	Addr string `json:"addr,omitempty"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR, FATAL.
	LogLevel string `json:"logLevel,omitempty"`
	// LogFile, when set, mirrors logs to a rotating file.
	LogFile string `json:"logFile,omitempty"`
	// InputCostPerMTok / OutputCostPerMTok drive spend accounting, in USD
	// per million tokens.
	InputCostPerMTok  float64 `json:"inputCostPerMTok,omitempty"`
	OutputCostPerMTok float64 `json:"outputCostPerMTok,omitempty"`
	// BudgetIncrement is how much a "continue" on the budget guard raises
	// the session limit by, in USD.
	BudgetIncrement float64 `json:"budgetIncrement,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:             "claude-sonnet-4-5",
		MaxTokens:         8192,
		Addr:              "127.0.0.1:4517",
		LogLevel:          "INFO",
		InputCostPerMTok:  3.0,
		OutputCostPerMTok: 15.0,
		BudgetIncrement:   1.0,
	}
}

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/vaultcode/)
//  2. Project config (directory and its .vaultcode/)
//  3. VAULTCODE_CONFIG file
//  4. VAULTCODE_CONFIG_CONTENT inline JSON
//  5. Environment variables
func Load(directory string) (*Config, error) {
	config := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "vaultcode.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "vaultcode.jsonc"), globalPath)

	if directory != "" {
		projectDir := filepath.Join(directory, ".vaultcode")
		loadOnce(filepath.Join(directory, "vaultcode.json"), directory)
		loadOnce(filepath.Join(directory, "vaultcode.jsonc"), directory)
		loadOnce(filepath.Join(projectDir, "vaultcode.json"), projectDir)
		loadOnce(filepath.Join(projectDir, "vaultcode.jsonc"), projectDir)
	}

	if configPath := os.Getenv("VAULTCODE_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	if configContent := os.Getenv("VAULTCODE_CONFIG_CONTENT"); configContent != "" {
		var inline Config
		if err := json.Unmarshal([]byte(configContent), &inline); err == nil {
			merge(config, &inline)
		}
	}

	applyEnvOverrides(config)

	if config.Workspace == "" {
		config.Workspace = directory
	}
	if config.DataDir == "" {
		config.DataDir = GetPaths().StoragePath()
	}

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	merge(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// merge overlays non-zero fields of source onto target.
func merge(target, source *Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.SystemPrompt != "" {
		target.SystemPrompt = source.SystemPrompt
	}
	if source.MaxTokens > 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.Workspace != "" {
		target.Workspace = source.Workspace
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.Addr != "" {
		target.Addr = source.Addr
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.LogFile != "" {
		target.LogFile = source.LogFile
	}
	if source.InputCostPerMTok > 0 {
		target.InputCostPerMTok = source.InputCostPerMTok
	}
	if source.OutputCostPerMTok > 0 {
		target.OutputCostPerMTok = source.OutputCostPerMTok
	}
	if source.BudgetIncrement > 0 {
		target.BudgetIncrement = source.BudgetIncrement
	}
}

// applyEnvOverrides applies environment variable overrides, the highest
// priority source.
func applyEnvOverrides(config *Config) {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.APIKey == "" {
		config.APIKey = apiKey
	}
	if model := os.Getenv("VAULTCODE_MODEL"); model != "" {
		config.Model = model
	}
	if addr := os.Getenv("VAULTCODE_ADDR"); addr != "" {
		config.Addr = addr
	}
	if level := os.Getenv("VAULTCODE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if dir := os.Getenv("VAULTCODE_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
	if ws := os.Getenv("VAULTCODE_WORKSPACE"); ws != "" {
		config.Workspace = ws
	}
}

// Save writes the configuration to a file.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
