package models

import (
	"time"
)

// DocumentFile is a local PDF discovered in the documents directory.
type DocumentFile struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`
	Title string `json:"title,omitempty"`
	// SHA256 is the hex digest of the file contents.
	SHA256 string `json:"sha256,omitempty"`
}

// FileFailure records one document whose submission failed.
type FileFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadOutcome aggregates one pass over the documents directory.
// Failures is the only error channel; DirectoryError is set when the
// directory itself could not be read.
type UploadOutcome struct {
	Uploaded       []string      `json:"uploaded"`
	Failures       []FileFailure `json:"failures,omitempty"`
	DirectoryError string        `json:"directoryError,omitempty"`
	Message        string        `json:"message"`
}

// Succeeded reports whether every discovered document was submitted.
func (o *UploadOutcome) Succeeded() bool {
	return o.DirectoryError == "" && len(o.Failures) == 0
}

// FailedNames lists the names of the documents that failed.
func (o *UploadOutcome) FailedNames() []string {
	names := make([]string, len(o.Failures))
	for i, f := range o.Failures {
		names[i] = f.Name
	}
	return names
}

// FileStatus is the platform's ingestion state of a remote file.
type FileStatus string

const (
	FileProcessing       FileStatus = "Processing"
	FileAvailable        FileStatus = "Available"
	FileProcessingFailed FileStatus = "ProcessingFailed"
)

// Terminal reports whether ingestion has finished, successfully or not.
func (s FileStatus) Terminal() bool {
	return s == FileAvailable || s == FileProcessingFailed
}

// RemoteFile is a file attached to an assistant on the platform.
type RemoteFile struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       FileStatus `json:"status"`
	Size         int64      `json:"size"`
	PercentDone  float64    `json:"percentDone,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
