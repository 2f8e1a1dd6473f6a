package pinecone

import (
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient("pk-test", Config{
		ControlURL:    srv.URL + "/",
		Instructions:  "Answer from the handbook.",
		Region:        "us",
		ChatModel:     "gpt-4o",
		ReadyInterval: 5 * time.Millisecond,
	}, logger.NewTestLogger())
	require.NoError(t, err)
	return c, srv
}

func TestNewClientValidatesKey(t *testing.T) {
	_, err := NewClient("", Config{}, logger.NewTestLogger())
	assert.Error(t, err)
	_, err = NewClient("pk test", Config{}, logger.NewTestLogger())
	assert.Error(t, err)
	_, err = NewClient("pk-test\n", Config{}, logger.NewTestLogger())
	assert.Error(t, err)

	c, err := NewClient("pk-test", Config{}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://api.pinecone.io", c.cfg.ControlURL)
	assert.Equal(t, "2025-01", c.cfg.APIVersion)
}

func TestListAssistants(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /assistant/assistants", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pk-test", r.Header.Get("Api-Key"))
		assert.Equal(t, "2025-01", r.Header.Get("X-Pinecone-API-Version"))
		fmt.Fprint(w, `{"assistants":[{"name":"handbook","status":"Ready","host":"prod-1-data.ke.pinecone.io"}]}`)
	})
	c, _ := newTestClient(t, mux)

	got, err := c.ListAssistants(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.AssistantInfo{Name: "handbook", Status: models.AssistantReady, Host: "prod-1-data.ke.pinecone.io"}, got[0])

	a := c.Open(got[0]).(*assistant)
	assert.Equal(t, "https://prod-1-data.ke.pinecone.io", a.host)
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.ListAssistants(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "404")
}

func TestCreateAssistantWaitsForReady(t *testing.T) {
	var describes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assistant/assistants", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "handbook", body["name"])
		assert.Equal(t, "Answer from the handbook.", body["instructions"])
		assert.Equal(t, "us", body["region"])
		fmt.Fprintf(w, `{"name":"handbook","status":"Initializing","host":%q}`, "http://"+r.Host)
	})
	mux.HandleFunc("GET /assistant/assistants/handbook", func(w http.ResponseWriter, r *http.Request) {
		status := "Initializing"
		if describes.Add(1) >= 2 {
			status = "Ready"
		}
		fmt.Fprintf(w, `{"name":"handbook","status":%q,"host":%q}`, status, "http://"+r.Host)
	})
	c, srv := newTestClient(t, mux)

	a, err := c.CreateAssistant(context.Background(), "handbook", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "handbook", a.Name())
	assert.Equal(t, int32(2), describes.Load())
	assert.Equal(t, srv.URL, a.(*assistant).host)
}

func TestCreateAssistantTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/assistant/assistants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"handbook","status":"Initializing"}`)
	})
	mux.HandleFunc("/assistant/assistants/handbook", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"handbook","status":"Initializing"}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.CreateAssistant(context.Background(), "handbook", 30*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateAssistantFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/assistant/assistants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"handbook","status":"Failed"}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.CreateAssistant(context.Background(), "handbook", time.Second)
	assert.ErrorContains(t, err, "failed to initialize")
}

func TestFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /assistant/files/handbook", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[
			{"id":"f1","name":"a.pdf","status":"Available","size":120,"percent_done":1,"created_on":"2024-05-01T10:00:00Z"},
			{"id":"f2","name":"b.pdf","status":"ProcessingFailed","error_message":"unreadable"}
		]}`)
	})
	mux.HandleFunc("POST /assistant/files/handbook", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "c.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4 body", string(data))
		fmt.Fprint(w, `{"id":"f3","name":"c.pdf","status":"Processing"}`)
	})
	c, srv := newTestClient(t, mux)
	a := c.Open(models.AssistantInfo{Name: "handbook", Host: srv.URL})

	files, err := a.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, models.FileAvailable, files[0].Status)
	assert.Equal(t, int64(120), files[0].Size)
	assert.Equal(t, 2024, files[0].CreatedAt.Year())
	assert.Equal(t, models.FileProcessingFailed, files[1].Status)
	assert.Equal(t, "unreadable", files[1].ErrorMessage)

	path := filepath.Join(t.TempDir(), "c.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600))
	uploaded, err := a.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "f3", uploaded.ID)
	assert.Equal(t, models.FileProcessing, uploaded.Status)

	_, err = a.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestChatStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assistant/chat/handbook/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []models.ChatMessage `json:"messages"`
			Stream   bool                 `json:"stream"`
			Model    string               `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)
		assert.Equal(t, "gpt-4o", body.Model)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, models.RoleUser, body.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Twenty\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"delta\":{\"content\":\" days\"}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	})
	c, srv := newTestClient(t, mux)
	a := c.Open(models.AssistantInfo{Name: "handbook", Host: srv.URL})

	var tokens []string
	err := a.Chat(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Content: "Vacation?"}}, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Twenty", " days"}, tokens)
}
