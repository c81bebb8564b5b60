// Package upload sends user documents to object storage through
// server-issued presigned URLs.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxFileSize caps uploads at 5 MiB.
const DefaultMaxFileSize = 5 * 1024 * 1024

const presignPath = "/api/v1/presigned-url"

// ErrFileTooLarge is returned when a file exceeds the size cap.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")

// ErrUnsupportedType is returned for content types outside the allowed
// set.
var ErrUnsupportedType = errors.New("unsupported file type")

// Result describes one completed upload.
type Result struct {
	// FileKey is the storage key the server generated.
	FileKey string
	// CleanURL is the presigned URL with its query credentials removed.
	CleanURL string
}

// File is one batch entry.
type File struct {
	Name        string
	Content     []byte
	ContentType string
}

// BatchResult pairs one batch entry with its outcome.
type BatchResult struct {
	Name   string
	Result Result
	Err    error
}

// Uploader issues presigned URLs and PUTs file contents to them.
type Uploader struct {
	baseURL     string
	httpClient  *http.Client
	maxFileSize int64
	logger      *zap.Logger
}

// NewUploader builds an uploader. maxFileSize <= 0 selects the default
// cap.
func NewUploader(baseURL string, timeout time.Duration, maxFileSize int64, logger *zap.Logger) *Uploader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Uploader{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

type presignRequest struct {
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		PresignedURL string `json:"presignedUrl"`
		FileKey      string `json:"fileKey"`
		MaxFileSize  int64  `json:"maxFileSize"`
		ExpiresIn    int64  `json:"expiresIn"`
	} `json:"data"`
}

// Upload stores one file and returns its key and shareable URL.
func (u *Uploader) Upload(ctx context.Context, name string, content []byte, contentType string) (Result, error) {
	presigned, err := u.requestPresignedURL(ctx, contentType)
	if err != nil {
		return Result{}, err
	}

	if err := u.putFile(ctx, presigned.Data.PresignedURL, content, contentType); err != nil {
		return Result{}, err
	}

	u.logger.Info("uploaded file",
		zap.String("name", name),
		zap.String("file_key", presigned.Data.FileKey),
		zap.Int("size", len(content)))

	return Result{
		FileKey:  presigned.Data.FileKey,
		CleanURL: CleanURL(presigned.Data.PresignedURL),
	}, nil
}

func (u *Uploader) requestPresignedURL(ctx context.Context, contentType string) (*presignResponse, error) {
	body, err := json.Marshal(presignRequest{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("encode presign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+presignPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build presign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request presigned url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("presign request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var presigned presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&presigned); err != nil {
		return nil, fmt.Errorf("decode presign response: %w", err)
	}
	if !presigned.Success {
		msg := presigned.Message
		if msg == "" {
			msg = "server refused to issue a presigned url"
		}
		return nil, fmt.Errorf("presign request failed: %s", msg)
	}
	if presigned.Data.PresignedURL == "" {
		return nil, errors.New("presign response missing url")
	}
	return &presigned, nil
}

func (u *Uploader) putFile(ctx context.Context, presignedURL string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(content))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}
	return nil
}

// UploadBatch uploads every file, continuing past individual failures.
func (u *Uploader) UploadBatch(ctx context.Context, files []File) []BatchResult {
	results := make([]BatchResult, 0, len(files))
	for _, f := range files {
		res, err := u.Upload(ctx, f.Name, f.Content, f.ContentType)
		if err != nil {
			u.logger.Warn("batch upload entry failed",
				zap.String("name", f.Name), zap.Error(err))
		}
		results = append(results, BatchResult{Name: f.Name, Result: res, Err: err})
	}
	return results
}

// ValidateDocument accepts images and PDFs within the size cap.
func (u *Uploader) ValidateDocument(name string, size int64, contentType string) error {
	if size > u.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, name, size, u.maxFileSize)
	}
	if strings.HasPrefix(contentType, "image/") || contentType == "application/pdf" {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, contentType)
}

// ValidateImage accepts only images within the size cap.
func (u *Uploader) ValidateImage(name string, size int64, contentType string) error {
	if size > u.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, name, size, u.maxFileSize)
	}
	if strings.HasPrefix(contentType, "image/") {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, contentType)
}

// CleanURL strips query parameters so the stored URL carries no signing
// credentials. A URL that fails to parse is returned unchanged.
func CleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

var contentTypeExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// ExtensionForContentType maps a MIME type to a file extension, falling
// back to "jpg".
func ExtensionForContentType(contentType string) string {
	if ext, ok := contentTypeExtensions[contentType]; ok {
		return ext
	}
	return "jpg"
}
