package provision

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform/platformtest"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

const testAssistant = "handbook"

// writeDocs creates each named file in a fresh directory.
func writeDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4\n"), 0o600))
	}
	return dir
}

func available(names ...string) []models.RemoteFile {
	files := make([]models.RemoteFile, len(names))
	for i, n := range names {
		files[i] = models.RemoteFile{ID: "id-" + n, Name: n, Status: models.FileAvailable}
	}
	return files
}

func processing(names ...string) []models.RemoteFile {
	files := available(names...)
	for i := range files {
		files[i].Status = models.FileProcessing
	}
	return files
}

type fixture struct {
	fake         *platformtest.Fake
	log          *logger.TestLogger
	checker      *Checker
	uploader     *Uploader
	poller       *Poller
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, dir string) *fixture {
	t.Helper()
	f := &fixture{fake: platformtest.NewFake(), log: logger.NewTestLogger()}
	f.checker = NewChecker("pk-test", testAssistant, f.fake.Factory(), f.log)
	f.uploader = NewUploader(dir, f.log)
	f.poller = NewPoller(200*time.Millisecond, 10*time.Millisecond, f.log)
	f.orchestrator = NewOrchestrator(f.checker, f.uploader, f.poller, time.Second, f.log)
	return f
}

// minimalPDF returns a one-page PDF titled title with a valid xref table.
func minimalPDF(title string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [4 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Title (%s) >>", title),
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
