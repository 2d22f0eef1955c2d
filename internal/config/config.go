// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/ndjson"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" json:"backend"`
	Search  SearchConfig  `toml:"search" json:"search"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Stream  StreamConfig  `toml:"stream" json:"stream"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
	Storage StorageConfig `toml:"storage" json:"storage"`

	// explicit records keys set by the file or environment, so backend
	// defaults never override a user choice.
	explicit map[string]bool
}

// BackendConfig locates and paces the RAG backend.
type BackendConfig struct {
	URL                   string  `toml:"url" json:"url" validate:"required,url"`
	TimeoutSeconds        int     `toml:"timeout_seconds" json:"timeout_seconds" validate:"gte=1,lte=3600"`
	ConnectTimeoutSeconds int     `toml:"connect_timeout_seconds" json:"connect_timeout_seconds" validate:"gte=1,lte=300"`
	RequestsPerSecond     float64 `toml:"requests_per_second" json:"requests_per_second" validate:"gt=0"`
	ConfigCacheSeconds    int     `toml:"config_cache_seconds" json:"config_cache_seconds" validate:"gte=0"`
	SyncRemoteDefaults    bool    `toml:"sync_remote_defaults" json:"sync_remote_defaults"`
}

// SearchConfig holds default search parameters.
type SearchConfig struct {
	Limit                     int      `toml:"limit" json:"limit" validate:"gte=1,lte=100"`
	SemanticRatio             float64  `toml:"semantic_ratio" json:"semantic_ratio" validate:"gte=0,lte=1"`
	SimilarityThreshold       int      `toml:"similarity_threshold" json:"similarity_threshold" validate:"gte=0,lte=100"`
	EnableLLM                 bool     `toml:"enable_llm" json:"enable_llm"`
	ManualSemanticRatio       bool     `toml:"manual_semantic_ratio" json:"manual_semantic_ratio"`
	EnableKeywordWeightRerank bool     `toml:"enable_keyword_weight_rerank" json:"enable_keyword_weight_rerank"`
	MaxQueryLength            int      `toml:"max_query_length" json:"max_query_length" validate:"gte=1"`
	StartDate                 string   `toml:"start_date" json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate                   string   `toml:"end_date" json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	SelectedWebsites          []string `toml:"selected_websites" json:"selected_websites"`
}

// ChatConfig holds chat limits.
type ChatConfig struct {
	MaxMessageLength int    `toml:"max_message_length" json:"max_message_length" validate:"gte=1"`
	MaxHistory       int    `toml:"max_history" json:"max_history" validate:"gte=2,lte=200"`
	TokenLimit       int    `toml:"token_limit" json:"token_limit" validate:"gte=0"`
	CitationStyle    string `toml:"citation_style" json:"citation_style" validate:"oneof=markdown html terminal"`
}

// StreamConfig tunes the NDJSON reader.
type StreamConfig struct {
	// FlushTrailingLine parses a final record that lacks a newline.
	FlushTrailingLine bool `toml:"flush_trailing_line" json:"flush_trailing_line"`
}

// UIConfig controls the dashboard.
type UIConfig struct {
	RenderMarkdown    bool `toml:"render_markdown" json:"render_markdown"`
	WordWrap          int  `toml:"word_wrap" json:"word_wrap" validate:"gte=20,lte=400"`
	ThresholdStep     int  `toml:"threshold_step" json:"threshold_step" validate:"gte=1,lte=50"`
	ShowAnnouncements bool `toml:"show_announcements" json:"show_announcements"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level      string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" validate:"gte=0"`
}

// StorageConfig locates the local SQLite database.
type StorageConfig struct {
	Path         string `toml:"path" json:"path"`
	HistoryLimit int    `toml:"history_limit" json:"history_limit" validate:"gte=0"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			URL:                   "http://127.0.0.1:8000",
			TimeoutSeconds:        60,
			ConnectTimeoutSeconds: 10,
			RequestsPerSecond:     5,
			ConfigCacheSeconds:    300,
			SyncRemoteDefaults:    true,
		},
		Search: SearchConfig{
			Limit:                     search.DefaultLimit,
			SemanticRatio:             search.DefaultSemanticRatio,
			SimilarityThreshold:       0,
			EnableLLM:                 true,
			EnableKeywordWeightRerank: true,
			MaxQueryLength:            search.DefaultMaxQueryLength,
		},
		Chat: ChatConfig{
			MaxMessageLength: 500,
			MaxHistory:       chat.DefaultMaxHistory,
			TokenLimit:       200000,
			CitationStyle:    "terminal",
		},
		UI: UIConfig{
			RenderMarkdown:    true,
			WordWrap:          100,
			ThresholdStep:     5,
			ShowAnnouncements: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Storage: StorageConfig{
			HistoryLimit: 500,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragdash configuration directory.
// RAGDASH_HOME overrides ~/.ragdash.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RAGDASH_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragdash"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// LogPath resolves the log file, defaulting into the config directory.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "logs", "ragdash.log")
}

// StoragePath resolves the SQLite path, defaulting into the config directory.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	dir, err := ConfigDir()
	if err != nil {
		return "ragdash.db"
	}
	return filepath.Join(dir, "ragdash.db")
}

// =============================================================================
// LOAD + SAVE
// =============================================================================

// Load reads .env files, the default config file and environment
// overrides, then validates. A missing file yields defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file.
func LoadFrom(path string) (*Config, error) {
	loadDotEnv(filepath.Dir(path))

	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes path over the defaults without environment overrides
// or validation. It is the starting point for editing the file in place.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.explicit = make(map[string]bool)

	if _, statErr := os.Stat(path); statErr == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
		for _, key := range md.Keys() {
			cfg.explicit[key.String()] = true
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, statErr
	}
	return cfg, nil
}

// loadDotEnv loads ./.env and <dir>/.env without overriding variables
// that are already set. Missing files are ignored.
func loadDotEnv(dir string) {
	for _, p := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				logger.L().Warn("config", "could not read .env", logger.Details{"path": p, "error": err.Error()})
			}
		}
	}
}

// Save writes cfg to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg as TOML with owner-only permissions.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("# ragdash configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

type envOverride struct {
	env string
	key string
}

var envOverrides = []envOverride{
	{"RAGDASH_BACKEND_URL", "backend.url"},
	{"RAGDASH_TIMEOUT", "backend.timeout_seconds"},
	{"RAGDASH_LIMIT", "search.limit"},
	{"RAGDASH_SEMANTIC_RATIO", "search.semantic_ratio"},
	{"RAGDASH_THRESHOLD", "search.similarity_threshold"},
	{"RAGDASH_ENABLE_LLM", "search.enable_llm"},
	{"RAGDASH_TOKEN_LIMIT", "chat.token_limit"},
	{"RAGDASH_CITATION_STYLE", "chat.citation_style"},
	{"RAGDASH_FLUSH_TRAILING", "stream.flush_trailing_line"},
	{"RAGDASH_LOG_LEVEL", "log.level"},
	{"RAGDASH_LOG_FILE", "log.file"},
	{"RAGDASH_DB", "storage.path"},
}

// ApplyEnvOverrides applies RAGDASH_* variables.
func (c *Config) ApplyEnvOverrides() error {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.env)
		if !ok || v == "" {
			continue
		}
		if err := c.Set(o.key, v); err != nil {
			return fmt.Errorf("%s: %w", o.env, err)
		}
	}
	return nil
}

// SetDefaults fills zero values that would otherwise fail validation.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = def.Backend.TimeoutSeconds
	}
	if c.Backend.ConnectTimeoutSeconds == 0 {
		c.Backend.ConnectTimeoutSeconds = def.Backend.ConnectTimeoutSeconds
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = def.Backend.RequestsPerSecond
	}
	if c.Search.MaxQueryLength == 0 {
		c.Search.MaxQueryLength = def.Search.MaxQueryLength
	}
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = def.Chat.MaxMessageLength
	}
	if c.Chat.MaxHistory == 0 {
		c.Chat.MaxHistory = def.Chat.MaxHistory
	}
	if c.Chat.CitationStyle == "" {
		c.Chat.CitationStyle = def.Chat.CitationStyle
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = def.UI.WordWrap
	}
	if c.UI.ThresholdStep == 0 {
		c.UI.ThresholdStep = def.UI.ThresholdStep
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks every field and cross-field constraint.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, ValidationError{
				Field:   tomlPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	if c.Search.StartDate != "" && c.Search.EndDate != "" && c.Search.StartDate > c.Search.EndDate {
		errs = append(errs, ValidationError{Field: "search.start_date", Message: "must not be after search.end_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// tomlPath turns "Config.search.limit" into "search.limit".
func tomlPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a URL"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns the value at a dotted TOML key, e.g. "search.limit".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the field at a dotted TOML key and marks the
// key as explicitly set.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if c.explicit == nil {
		c.explicit = make(map[string]bool)
	}
	c.explicit[key] = true
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTOML(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTOML(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if strings.SplitN(sf.Tag.Get("toml"), ",", 2)[0] == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value %q", value)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid float value %q", value)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "yes", "on":
				b = true
			case "no", "off":
				b = false
			default:
				return fmt.Errorf("invalid boolean value %q", value)
			}
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// Keys lists every settable dotted key.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := strings.SplitN(sf.Tag.Get("toml"), ",", 2)[0]
			if name == "" || name == "-" {
				continue
			}
			if sf.Type.Kind() == reflect.Struct {
				walk(sf.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// IsExplicit reports whether key was set by the file, env or Set.
func (c *Config) IsExplicit(key string) bool {
	return c.explicit[key]
}

// =============================================================================
// BACKEND DEFAULTS
// =============================================================================

// ApplyRemote merges backend-served defaults into fields the user has not
// set explicitly. It returns the keys that changed.
func (c *Config) ApplyRemote(r *api.RemoteConfig) []string {
	if r == nil {
		return nil
	}
	var changed []string
	setInt := func(key string, dst *int, src *int) {
		if src != nil && !c.IsExplicit(key) && *dst != *src {
			*dst = *src
			changed = append(changed, key)
		}
	}
	setFloat := func(key string, dst *float64, src *float64) {
		if src != nil && !c.IsExplicit(key) && *dst != *src {
			*dst = *src
			changed = append(changed, key)
		}
	}
	setBool := func(key string, dst *bool, src *bool) {
		if src != nil && !c.IsExplicit(key) && *dst != *src {
			*dst = *src
			changed = append(changed, key)
		}
	}

	setInt("search.limit", &c.Search.Limit, r.DefaultLimit)
	if r.DefaultSimilarityThreshold != nil {
		pct := search.ThresholdFromRatio(*r.DefaultSimilarityThreshold)
		setInt("search.similarity_threshold", &c.Search.SimilarityThreshold, &pct)
	}
	setFloat("search.semantic_ratio", &c.Search.SemanticRatio, r.DefaultSemanticRatio)
	setBool("search.enable_llm", &c.Search.EnableLLM, r.EnableLLM)
	setBool("search.manual_semantic_ratio", &c.Search.ManualSemanticRatio, r.ManualSemanticRatio)
	setBool("search.enable_keyword_weight_rerank", &c.Search.EnableKeywordWeightRerank, r.EnableRerank)
	setInt("chat.token_limit", &c.Chat.TokenLimit, r.TokenLimit)
	setInt("chat.max_history", &c.Chat.MaxHistory, r.MaxChatHistory)

	if r.StartDate != "" && !c.IsExplicit("search.start_date") && c.Search.StartDate != r.StartDate {
		c.Search.StartDate = r.StartDate
		changed = append(changed, "search.start_date")
	}
	if r.EndDate != "" && !c.IsExplicit("search.end_date") && c.Search.EndDate != r.EndDate {
		c.Search.EndDate = r.EndDate
		changed = append(changed, "search.end_date")
	}
	return changed
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// SearchParams builds search parameters for query from the defaults.
func (c *Config) SearchParams(query string) search.Params {
	websites := append([]string(nil), c.Search.SelectedWebsites...)
	return search.Params{
		Query:                     query,
		Limit:                     c.Search.Limit,
		SemanticRatio:             c.Search.SemanticRatio,
		EnableLLM:                 c.Search.EnableLLM,
		ManualSemanticRatio:       c.Search.ManualSemanticRatio,
		EnableKeywordWeightRerank: c.Search.EnableKeywordWeightRerank,
		StartDate:                 c.Search.StartDate,
		EndDate:                   c.Search.EndDate,
		SelectedWebsites:          websites,
	}
}

// ClientConfig builds the backend client configuration.
func (c *Config) ClientConfig() *api.ClientConfig {
	ttl := time.Duration(c.Backend.ConfigCacheSeconds) * time.Second
	if ttl == 0 {
		ttl = -1
	}
	return &api.ClientConfig{
		BaseURL:           c.Backend.URL,
		Timeout:           time.Duration(c.Backend.TimeoutSeconds) * time.Second,
		ConnectTimeout:    time.Duration(c.Backend.ConnectTimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Backend.RequestsPerSecond,
		ConfigTTL:         ttl,
	}
}

// OrchestratorOptions builds search orchestrator options.
func (c *Config) OrchestratorOptions() search.Options {
	return search.Options{
		MaxQueryLength: c.Search.MaxQueryLength,
		Stream:         ndjson.Options{FlushTrailing: c.Stream.FlushTrailingLine},
	}
}

// ChatSessionConfig builds the chat session configuration.
func (c *Config) ChatSessionConfig() chat.Config {
	return chat.Config{
		MaxMessageLength: c.Chat.MaxMessageLength,
		MaxHistory:       c.Chat.MaxHistory,
		TokenLimit:       c.Chat.TokenLimit,
		Citations:        c.CitationFormatter(),
	}
}

// CitationFormatter returns the formatter named by chat.citation_style.
func (c *Config) CitationFormatter() citation.Formatter {
	switch c.Chat.CitationStyle {
	case "html":
		return citation.HTML
	case "terminal":
		return citation.Terminal
	default:
		return citation.Markdown
	}
}

// LoggerOptions builds logger options. console enables stderr output.
func (c *Config) LoggerOptions(console bool) logger.Options {
	return logger.Options{
		FilePath:   c.LogPath(),
		Level:      c.Log.Level,
		Console:    console,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Search.SelectedWebsites = append([]string(nil), c.Search.SelectedWebsites...)
	out.explicit = make(map[string]bool, len(c.explicit))
	for k, v := range c.explicit {
		out.explicit[k] = v
	}
	return &out
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "<invalid config: " + err.Error() + ">"
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			logger.L().Warn("config", "using defaults", logger.Details{"error": err.Error()})
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal re-reads the configuration from disk. On error the current
// configuration is kept.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
