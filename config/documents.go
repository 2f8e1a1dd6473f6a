package config

import "fmt"

const (
	DocumentSourceNone  = ""
	DocumentSourceS3    = "s3"
	DocumentSourceMinio = "minio"
)

// DocumentsConfig selects an optional bucket mirrored into the documents
// directory before each upload.
type DocumentsConfig struct {
	Source string
	Prefix string
	S3     S3Config
	Minio  MinioConfig
}

type S3Config struct {
	BucketName string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
}

type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

func loadDocumentsConfig() (DocumentsConfig, error) {
	source := getEnv("DOCS_SOURCE", DocumentSourceNone)
	switch source {
	case DocumentSourceNone, DocumentSourceS3, DocumentSourceMinio:
	default:
		return DocumentsConfig{}, fmt.Errorf("unsupported DOCS_SOURCE: %s", source)
	}

	useSSL, err := getBool("MINIO_USE_SSL", false)
	if err != nil {
		return DocumentsConfig{}, err
	}

	return DocumentsConfig{
		Source: source,
		Prefix: getEnv("DOCS_PREFIX", ""),
		S3: S3Config{
			BucketName: getEnv("AWS_S3_BUCKET_NAME", ""),
			Region:     getEnv("AWS_REGION", ""),
			Endpoint:   getEnv("AWS_ENDPOINT", ""),
			AccessKey:  getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:  getEnv("AWS_SECRET_KEY", ""),
		},
		Minio: MinioConfig{
			AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
			Endpoint:   getEnv("MINIO_ENDPOINT", ""),
			UseSSL:     useSSL,
			Region:     getEnv("MINIO_REGION", ""),
			BucketName: getEnv("MINIO_BUCKET_NAME", ""),
		},
	}, nil
}
