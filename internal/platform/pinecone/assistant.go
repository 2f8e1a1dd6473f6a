package pinecone

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

type assistant struct {
	client *Client
	name   string
	host   string
}

type fileModel struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Size         int64     `json:"size"`
	PercentDone  float64   `json:"percent_done"`
	ErrorMessage string    `json:"error_message"`
	CreatedOn    time.Time `json:"created_on"`
}

func (m fileModel) remote() models.RemoteFile {
	return models.RemoteFile{
		ID:           m.ID,
		Name:         m.Name,
		Status:       models.FileStatus(m.Status),
		Size:         m.Size,
		PercentDone:  m.PercentDone,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedOn,
	}
}

func (a *assistant) Name() string { return a.name }

func (a *assistant) filesURL() string {
	return a.host + "/assistant/files/" + url.PathEscape(a.name)
}

func (a *assistant) ListFiles(ctx context.Context) ([]models.RemoteFile, error) {
	var resp struct {
		Files []fileModel `json:"files"`
	}
	if err := a.client.doJSON(ctx, http.MethodGet, a.filesURL(), nil, &resp); err != nil {
		return nil, err
	}
	files := make([]models.RemoteFile, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, f.remote())
	}
	return files, nil
}

// UploadFile streams the file as multipart form data.
func (a *assistant) UploadFile(ctx context.Context, path string) (*models.RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := a.client.newRequest(ctx, http.MethodPost, a.filesURL(), pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := a.client.do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	defer resp.Body.Close()

	var uploaded fileModel
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	remote := uploaded.remote()
	return &remote, nil
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Delta *struct {
		Content string `json:"content"`
	} `json:"delta"`
}

func (a *assistant) Chat(ctx context.Context, messages []models.ChatMessage, onToken func(string) error) error {
	body := map[string]any{
		"messages": messages,
		"stream":   true,
	}
	if a.client.cfg.ChatModel != "" {
		body["model"] = a.client.cfg.ChatModel
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	target := a.host + "/assistant/chat/" + url.PathEscape(a.name) + "/chat/completions"
	req, err := a.client.newRequest(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.client.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			a.client.logger.Warn("Skipping malformed chat chunk",
				logger.String("assistant", a.name),
				logger.Error(err),
			)
			continue
		}
		for _, token := range chunk.tokens() {
			if err := onToken(token); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read chat stream: %w", err)
	}
	return nil
}

func (c chatChunk) tokens() []string {
	var out []string
	for _, choice := range c.Choices {
		if choice.Delta.Content != "" {
			out = append(out, choice.Delta.Content)
		}
	}
	if c.Delta != nil && c.Delta.Content != "" {
		out = append(out, c.Delta.Content)
	}
	return out
}
