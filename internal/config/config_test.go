// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/citation"
)

// isolate points the config directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAGDASH_HOME", dir)
	for _, o := range envOverrides {
		t.Setenv(o.env, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, 0.5, cfg.Search.SemanticRatio)
	assert.Equal(t, 0, cfg.Search.SimilarityThreshold)
	assert.True(t, cfg.Search.EnableLLM)
	assert.False(t, cfg.Search.ManualSemanticRatio)
	assert.True(t, cfg.Search.EnableKeywordWeightRerank)
	assert.Equal(t, 500, cfg.Search.MaxQueryLength)
	assert.Equal(t, 10, cfg.Chat.MaxHistory)
	assert.Equal(t, 200000, cfg.Chat.TokenLimit)
	assert.False(t, cfg.Stream.FlushTrailingLine)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
	assert.False(t, cfg.IsExplicit("search.limit"))
}

func TestLoadFrom_TOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[backend]
url = "http://rag.internal:9000"

[search]
limit = 12
similarity_threshold = 40
selected_websites = ["docs", "blog"]

[stream]
flush_trailing_line = true
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "http://rag.internal:9000", cfg.Backend.URL)
	assert.Equal(t, 12, cfg.Search.Limit)
	assert.Equal(t, 40, cfg.Search.SimilarityThreshold)
	assert.Equal(t, []string{"docs", "blog"}, cfg.Search.SelectedWebsites)
	assert.True(t, cfg.Stream.FlushTrailingLine)
	// untouched sections keep their defaults
	assert.Equal(t, 60, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 0.5, cfg.Search.SemanticRatio)

	assert.True(t, cfg.IsExplicit("search.limit"))
	assert.False(t, cfg.IsExplicit("search.semantic_ratio"))
}

func TestLoadFrom_BadTOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[search\nlimit = ")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode TOML")
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[search]
limit = 0
semantic_ratio = 1.5
start_date = "2024/01/01"

[chat]
citation_style = "bbcode"
`)

	_, err := LoadFrom(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)

	fields := map[string]string{}
	for _, ve := range verrs {
		fields[ve.Field] = ve.Message
	}
	assert.Equal(t, "must be >= 1", fields["search.limit"])
	assert.Equal(t, "must be <= 1", fields["search.semantic_ratio"])
	assert.Equal(t, "must be a date (YYYY-MM-DD)", fields["search.start_date"])
	assert.Contains(t, fields["chat.citation_style"], "must be one of")
}

func TestValidate_DateOrder(t *testing.T) {
	cfg := Default()
	cfg.Search.StartDate = "2024-05-01"
	cfg.Search.EndDate = "2024-01-01"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.start_date")
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[search]\nlimit = 12\n")

	t.Setenv("RAGDASH_LIMIT", "20")
	t.Setenv("RAGDASH_BACKEND_URL", "http://env:8000")
	t.Setenv("RAGDASH_FLUSH_TRAILING", "yes")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, "http://env:8000", cfg.Backend.URL)
	assert.True(t, cfg.Stream.FlushTrailingLine)
	assert.True(t, cfg.IsExplicit("backend.url"))
}

func TestEnvOverrides_BadValue(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDASH_LIMIT", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAGDASH_LIMIT")
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("RAGDASH_LOG_LEVEL")
	t.Cleanup(func() { os.Unsetenv("RAGDASH_LOG_LEVEL") })
	writeFile(t, filepath.Join(dir, ".env"), "RAGDASH_LOG_LEVEL=debug\n")

	cfg, err := LoadFrom(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestSaveAndReload(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Search.Limit = 8
	cfg.Chat.CitationStyle = "html"
	require.NoError(t, SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Search.Limit)
	assert.Equal(t, "html", loaded.Chat.CitationStyle)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
		want  interface{}
	}{
		{"search.limit", "7", 7},
		{"search.semantic_ratio", "0.25", 0.25},
		{"search.enable_llm", "off", false},
		{"backend.url", "http://x:1", "http://x:1"},
		{"search.selected_websites", "a, b,,c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, cfg.Set(tt.key, tt.value))
			got, err := cfg.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, cfg.IsExplicit(tt.key))
		})
	}
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	_, err := cfg.Get("search.nope")
	assert.ErrorContains(t, err, "unknown key")

	_, err = cfg.Get("search")
	assert.ErrorContains(t, err, "section")

	assert.ErrorContains(t, cfg.Set("search.limit", "x"), "invalid integer")
	assert.ErrorContains(t, cfg.Set("search.enable_llm", "maybe"), "invalid boolean")
	assert.Error(t, cfg.Set("", "1"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "backend.url")
	assert.Contains(t, keys, "search.similarity_threshold")
	assert.Contains(t, keys, "stream.flush_trailing_line")
	assert.NotContains(t, keys, "search")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func ptr[T any](v T) *T { return &v }

func TestApplyRemote(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("search.limit", "9"))

	changed := cfg.ApplyRemote(&api.RemoteConfig{
		DefaultLimit:               ptr(20),
		DefaultSimilarityThreshold: ptr(0.845),
		DefaultSemanticRatio:       ptr(0.8),
		EnableLLM:                  ptr(false),
		TokenLimit:                 ptr(50000),
		StartDate:                  "2024-01-01",
	})

	// user-set limit wins
	assert.Equal(t, 9, cfg.Search.Limit)
	assert.Equal(t, 85, cfg.Search.SimilarityThreshold)
	assert.Equal(t, 0.8, cfg.Search.SemanticRatio)
	assert.False(t, cfg.Search.EnableLLM)
	assert.Equal(t, 50000, cfg.Chat.TokenLimit)
	assert.Equal(t, "2024-01-01", cfg.Search.StartDate)

	assert.ElementsMatch(t, []string{
		"search.similarity_threshold",
		"search.semantic_ratio",
		"search.enable_llm",
		"chat.token_limit",
		"search.start_date",
	}, changed)

	assert.Empty(t, cfg.ApplyRemote(nil))
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()
	cfg.Search.SelectedWebsites = []string{"docs"}
	cfg.Stream.FlushTrailingLine = true
	cfg.Backend.ConfigCacheSeconds = 0

	p := cfg.SearchParams("hello")
	assert.Equal(t, "hello", p.Query)
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, []string{"docs"}, p.SelectedWebsites)
	p.SelectedWebsites[0] = "mutated"
	assert.Equal(t, "docs", cfg.Search.SelectedWebsites[0])

	cc := cfg.ClientConfig()
	assert.Equal(t, 60*time.Second, cc.Timeout)
	assert.Less(t, cc.ConfigTTL, time.Duration(0))

	assert.True(t, cfg.OrchestratorOptions().Stream.FlushTrailing)
	assert.Equal(t, 500, cfg.OrchestratorOptions().MaxQueryLength)

	cs := cfg.ChatSessionConfig()
	assert.Equal(t, 200000, cs.TokenLimit)

	cfg.Chat.CitationStyle = "html"
	got := cfg.CitationFormatter()("1", "[1]", "http://a")
	assert.Equal(t, citation.HTML("1", "[1]", "http://a"), got)
}

func TestPaths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	assert.Equal(t, filepath.Join(dir, "ragdash.db"), cfg.StoragePath())
	assert.Equal(t, filepath.Join(dir, "logs", "ragdash.log"), cfg.LogPath())

	cfg.Storage.Path = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.StoragePath())
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.Search.SelectedWebsites = []string{"a"}
	require.NoError(t, cfg.Set("search.limit", "3"))

	c := cfg.Clone()
	c.Search.SelectedWebsites[0] = "b"
	assert.Equal(t, "a", cfg.Search.SelectedWebsites[0])
	assert.True(t, c.IsExplicit("search.limit"))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[search]\nlimit = 3\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) {
			if err != nil {
				return
			}
			select {
			case got <- c:
			default:
			}
		})
	}()

	// the watcher registers asynchronously; keep writing until it reports
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			assert.Equal(t, 4, c.Search.Limit)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			writeFile(t, path, "[search]\nlimit = 4\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_ConcurrentReload(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()
	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
