// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/search"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(&ClientConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestSearchRequestBody(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"stage":"complete","results":[]}`+"\n")
	}))

	p := search.DefaultParams("copilot")
	p.StartDate = "2025-01-01"
	p.SelectedWebsites = []string{"partner"}
	body, err := c.OpenSearchStream(context.Background(), p)
	require.NoError(t, err)
	_, _ = io.ReadAll(body)
	_ = body.Close()

	assert.Equal(t, "copilot", got["query"])
	assert.Equal(t, float64(5), got["limit"])
	assert.Equal(t, 0.5, got["semantic_ratio"])
	assert.Equal(t, true, got["enable_llm"])
	assert.Equal(t, false, got["manual_semantic_ratio"])
	assert.Equal(t, true, got["enable_keyword_weight_rerank"])
	assert.Equal(t, "2025-01-01", got["start_date"])
	assert.Nil(t, got["end_date"])
	assert.Contains(t, got, "end_date")
	assert.Equal(t, []interface{}{"partner"}, got["selected_websites"])
}

func TestSearchRequestValidation(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	p := search.DefaultParams("q")
	p.StartDate = "yesterday"
	_, err := c.OpenSearchStream(context.Background(), p)
	assert.True(t, search.IsValidation(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearchNonOKStatus(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantStage bool
	}{
		{"structured", `{"error":"meili down","error_stage":"meilisearch"}`, true},
		{"raw text", `upstream exploded`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.OpenSearchStream(context.Background(), search.DefaultParams("q"))
			require.Error(t, err)
			assert.Equal(t, tt.wantStage, search.IsBackendStage(err))
			assert.Equal(t, !tt.wantStage, search.IsTransport(err))
		})
	}
}

// streamHandler writes records with flushes in between so the client sees
// them as separate chunks, one record split across two writes.
func streamHandler(records ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fl := w.(http.Flusher)
		for _, rec := range records {
			half := len(rec) / 2
			_, _ = io.WriteString(w, rec[:half])
			fl.Flush()
			_, _ = io.WriteString(w, rec[half:]+"\n")
			fl.Flush()
		}
	}
}

func TestOrchestratorOverHTTP(t *testing.T) {
	c := newTestClient(t, streamHandler(
		`{"stage":"searching","message":"查詢中"}`,
		`not json at all`,
		`{"stage":"summarizing","message":"總結中"}`,
		`{"stage":"complete","results":[{"id":"1","title":"T","_rankingScore":0.9}],"summary":"ok [1]","link_mapping":{"1":"http://x"}}`,
	))

	store := search.NewStore()
	var summary string
	var stages []string
	orch := search.NewOrchestrator(c, store, search.Hooks{
		OnSearching:   func(m string) { stages = append(stages, m) },
		OnSummarizing: func(m string) { stages = append(stages, m) },
		OnSummary: func(s search.Summary, links map[string]string) {
			summary = s.Markdown(links, citation.HTML)
		},
	}, search.Options{})

	out := orch.Search(context.Background(), search.DefaultParams("q"))
	require.NoError(t, out.Err)
	assert.Equal(t, []string{"查詢中", "總結中"}, stages)
	require.Len(t, store.All(), 1)
	assert.Equal(t, "T", store.All()[0].Title)
	assert.Equal(t, `ok <a href="http://x" target="_blank" class="citation-link">[1]</a>`, summary)
}

func TestCollectionSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "start_date")
		_, _ = io.WriteString(w, `{"results":[{"id":"a","content":"x","_rankingScore":0.4}],"intent":{"keyword_query":"k","filters":{"workspaces":["General"]}}}`)
	}))

	res, err := c.CollectionSearch(context.Background(), search.DefaultParams("q"))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 40, search.ScorePercent(res.Results[0]))
	assert.Equal(t, []string{"General"}, res.Intent.Filters.Workspaces)
}

func TestCollectionSearchStageError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"bad intent","stage":"intent_parsing"}`)
	}))
	_, err := c.CollectionSearch(context.Background(), search.DefaultParams("q"))
	var stageErr *search.BackendStageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "query-intent parsing", stageErr.Label())
}

func TestChat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chat.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hi", req.Message)
		if assert.Len(t, req.Context, 1) {
			assert.Equal(t, "[No.1] T", req.Context[0].Title)
		}
		_, _ = io.WriteString(w, `{"answer":"hello [1]","suggestions":["more"],"token_usage":{"total":321}}`)
	}))

	resp, err := c.Chat(context.Background(), chat.Request{
		Message: "hi",
		Context: []chat.ContextEntry{{Title: "[No.1] T", Content: "c"}},
		History: []chat.Turn{},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello [1]", resp.Answer)
	assert.Equal(t, 321, resp.TokenUsage.Total)
}

func TestChatErrorBodies(t *testing.T) {
	t.Run("error in OK body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"error":"Input length exceeds 4096"}`)
		}))
		resp, err := c.Chat(context.Background(), chat.Request{Message: "x"})
		require.NoError(t, err)
		assert.Equal(t, "Input length exceeds 4096", resp.Error)
	})

	t.Run("error in non-OK body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Token 使用量超過"}`)
		}))
		resp, err := c.Chat(context.Background(), chat.Request{Message: "x"})
		require.NoError(t, err)
		assert.Equal(t, chat.TurnErrorTokenLimit, chat.ClassifyBackendError(resp.Error))
	})
}

func TestChatSessionOverHTTP(t *testing.T) {
	var chatCalls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&chatCalls, 1)
		_, _ = io.WriteString(w, `{"answer":"ok"}`)
	}))

	sess := chat.NewSession(c, search.NewStore(), chat.DefaultConfig())
	reply := sess.Send(context.Background(), "anything")
	assert.Equal(t, chat.ReplySearchFirst, reply.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&chatCalls))
}

func TestConfigIsCached(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{
			"default_limit": 8,
			"default_similarity_threshold": 0.35,
			"enable_rerank": false,
			"announcements": [{"main_title":"M","title":"T","content":["a","b"]}],
			"websites": [{"title":"Partner","URL":"http://p","update_date":"2025-12-01","update_count":3}]
		}`)
	}))

	cfg, err := c.Config(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg.DefaultLimit)
	assert.Equal(t, 8, *cfg.DefaultLimit)
	assert.Equal(t, 35, search.ThresholdFromRatio(*cfg.DefaultSimilarityThreshold))
	assert.False(t, *cfg.EnableRerank)
	assert.Nil(t, cfg.EnableLLM)
	assert.Equal(t, TextOrLines("a\nb"), cfg.Announcements[0].Content)
	assert.Equal(t, "http://p", cfg.Websites[0].URL)

	_, err = c.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	c.InvalidateConfig()
	_, err = c.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFeedback(t *testing.T) {
	var got FeedbackRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feedback", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))

	params := NewSearchRequest(search.DefaultParams("q"))
	require.NoError(t, c.Feedback(context.Background(), FeedbackRequest{FeedbackType: FeedbackNegative, Query: "q", SearchParams: params}))
	assert.Equal(t, FeedbackNegative, got.FeedbackType)
	assert.Equal(t, 5, got.SearchParams.Limit)

	err := c.Feedback(context.Background(), FeedbackRequest{FeedbackType: "meh", Query: "q"})
	assert.True(t, search.IsValidation(err))
}

func TestMaintenanceEndpoints(t *testing.T) {
	seen := map[string]string{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.Method
		switch r.URL.Path {
		case "/api/clear_collection":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "docs_hybrid", body["collection_name"])
			_, _ = io.WriteString(w, `{"message":"cleared"}`)
		case "/api/collection_stats/docs_hybrid":
			_, _ = io.WriteString(w, `{"points_count":12}`)
		default:
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		}
	}))
	ctx := context.Background()

	require.NoError(t, c.ClearLLMHistory(ctx))
	require.NoError(t, c.ClearLastLLMTurn(ctx))
	ack, err := c.ClearCollection(ctx, "docs_hybrid")
	require.NoError(t, err)
	assert.Equal(t, "cleared", ack.Message)
	stats, err := c.CollectionStats(ctx, "docs_hybrid")
	require.NoError(t, err)
	assert.Equal(t, float64(12), stats["points_count"])

	assert.Equal(t, http.MethodPost, seen["/api/clear_llm_history"])
	assert.Equal(t, http.MethodPost, seen["/api/clear_last_llm_turn"])
	assert.Equal(t, http.MethodGet, seen["/api/collection_stats/docs_hybrid"])

	_, err = c.ClearCollection(ctx, " ")
	assert.True(t, search.IsValidation(err))
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0600))

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "docs_hybrid", r.FormValue("collection_name"))
		assert.Equal(t, "Hybrid", r.FormValue("mode"))
		assert.Equal(t, "300", r.FormValue("chunk_size"))
		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer f.Close()
			assert.Equal(t, "notes.md", hdr.Filename)
		}
		_, _ = io.WriteString(w, `{"chunks_count":4,"successful_uploads":3,"failed_chunks":1}`)
	}))

	res, err := c.Upload(context.Background(), UploadRequest{FilePath: path, CollectionName: "docs_hybrid"})
	require.NoError(t, err)
	assert.Equal(t, `Successfully uploaded 3/4 chunks (1 failed) to collection "docs_hybrid"`, res.Summary("docs_hybrid"))

	_, err = c.Upload(context.Background(), UploadRequest{FilePath: filepath.Join(dir, "missing"), CollectionName: "x"})
	assert.True(t, search.IsValidation(err))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(&ClientConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), chat.Request{Message: "x"})
	assert.True(t, search.IsTransport(err))

	sess := chat.NewSession(c, storeWithOne(), chat.DefaultConfig())
	reply := sess.Send(context.Background(), "q")
	assert.Equal(t, chat.ReplyNetworkError, reply.Kind)
	assert.Equal(t, chat.MsgNetworkError, reply.Text)
}

func storeWithOne() *search.Store {
	s := search.NewStore()
	s.SetResults([]search.Result{{ID: "1", Title: "T", Content: "c", RelevanceScore: 0.5}})
	return s
}
