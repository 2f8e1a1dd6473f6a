// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
)

// Fake is a scriptable platform.Client. The zero value is not usable;
// call NewFake.
type Fake struct {
	mu         sync.Mutex
	assistants map[string]*FakeAssistant

	// ListErr fails ListAssistants when set.
	ListErr error
	// CreateErr fails CreateAssistant when set.
	CreateErr error
	// CreateBlock, when non-nil, makes CreateAssistant wait until it is
	// closed (or ctx is done).
	CreateBlock chan struct{}
	// UploadErrs fails UploadFile for the named files.
	UploadErrs map[string]error
	// UploadStatus is the status new uploads start in.
	UploadStatus models.FileStatus

	listCalls   int
	createCalls int
	created     chan string
}

func NewFake() *Fake {
	return &Fake{
		assistants:   make(map[string]*FakeAssistant),
		UploadErrs:   make(map[string]error),
		UploadStatus: models.FileAvailable,
		created:      make(chan string, 16),
	}
}

// Factory returns a platform.Factory that always yields f.
func (f *Fake) Factory() platform.Factory {
	return func(string) (platform.Client, error) { return f, nil }
}

// AddAssistant registers an existing assistant with the given files.
func (f *Fake) AddAssistant(name string, files ...models.RemoteFile) *FakeAssistant {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &FakeAssistant{fake: f, name: name, files: append([]models.RemoteFile{}, files...)}
	f.assistants[name] = a
	return a
}

// Assistant returns the named assistant, or nil.
func (f *Fake) Assistant(name string) *FakeAssistant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assistants[name]
}

func (f *Fake) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *Fake) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

// Created receives the name of each assistant once CreateAssistant returns
// successfully.
func (f *Fake) Created() <-chan string {
	return f.created
}

func (f *Fake) ListAssistants(ctx context.Context) ([]models.AssistantInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]models.AssistantInfo, 0, len(f.assistants))
	for name := range f.assistants {
		out = append(out, models.AssistantInfo{Name: name, Status: models.AssistantReady, Host: "fake"})
	}
	return out, nil
}

func (f *Fake) CreateAssistant(ctx context.Context, name string, timeout time.Duration) (platform.Assistant, error) {
	f.mu.Lock()
	f.createCalls++
	block, createErr := f.CreateBlock, f.CreateErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if createErr != nil {
		return nil, createErr
	}
	f.mu.Lock()
	if _, ok := f.assistants[name]; ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("assistant %s already exists", name)
	}
	a := &FakeAssistant{fake: f, name: name}
	f.assistants[name] = a
	f.mu.Unlock()

	f.created <- name
	return a, nil
}

func (f *Fake) Open(info models.AssistantInfo) platform.Assistant {
	if a := f.Assistant(info.Name); a != nil {
		return a
	}
	return &FakeAssistant{fake: f, name: info.Name}
}

// FakeAssistant is an in-memory platform.Assistant.
type FakeAssistant struct {
	fake *Fake

	mu        sync.Mutex
	name      string
	files     []models.RemoteFile
	uploads   []string
	listCalls int
	// Script, when set, replaces ListFiles results: call n returns
	// Script[min(n, len-1)].
	Script [][]models.RemoteFile
	// ListErr fails ListFiles when set.
	ListErr error
	// ChatTokens are streamed by Chat.
	ChatTokens []string
	// ChatErr is returned by Chat after the tokens.
	ChatErr error
	// LastChat records the messages of the most recent Chat call.
	LastChat []models.ChatMessage
}

func (a *FakeAssistant) Name() string { return a.name }

func (a *FakeAssistant) ListFiles(ctx context.Context) ([]models.RemoteFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.listCalls
	a.listCalls++
	if a.ListErr != nil {
		return nil, a.ListErr
	}
	if len(a.Script) > 0 {
		if n >= len(a.Script) {
			n = len(a.Script) - 1
		}
		return append([]models.RemoteFile{}, a.Script[n]...), nil
	}
	return append([]models.RemoteFile{}, a.files...), nil
}

func (a *FakeAssistant) UploadFile(ctx context.Context, path string) (*models.RemoteFile, error) {
	name := filepath.Base(path)

	a.fake.mu.Lock()
	uploadErr := a.fake.UploadErrs[name]
	status := a.fake.UploadStatus
	a.fake.mu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, name)
	if uploadErr != nil {
		return nil, uploadErr
	}
	file := models.RemoteFile{
		ID:        fmt.Sprintf("file-%d", len(a.files)+1),
		Name:      name,
		Status:    status,
		CreatedAt: time.Now(),
	}
	a.files = append(a.files, file)
	return &file, nil
}

func (a *FakeAssistant) Chat(ctx context.Context, messages []models.ChatMessage, onToken func(string) error) error {
	a.mu.Lock()
	a.LastChat = append([]models.ChatMessage{}, messages...)
	tokens, chatErr := a.ChatTokens, a.ChatErr
	a.mu.Unlock()

	for _, t := range tokens {
		if err := onToken(t); err != nil {
			return err
		}
	}
	return chatErr
}

// Uploads lists the file names passed to UploadFile, in call order.
func (a *FakeAssistant) Uploads() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.uploads...)
}

func (a *FakeAssistant) ListCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listCalls
}

// SetFiles replaces the assistant's files.
func (a *FakeAssistant) SetFiles(files ...models.RemoteFile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = append([]models.RemoteFile{}, files...)
}

// ErrUnavailable is a generic transport failure for tests.
var ErrUnavailable = errors.New("platform unavailable")
