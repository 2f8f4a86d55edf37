package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// Uploader грузит изображения на медиахост multipart-запросом.
// Неудачная загрузка возвращается как ошибка и никак не компенсируется:
// уже загруженные в рамках той же операции файлы остаются на хосте.
type Uploader struct {
	uploadURL  string
	session    TokenSource
	httpClient *http.Client
}

func NewUploader(uploadURL string, session TokenSource) *Uploader {
	return &Uploader{
		uploadURL:  uploadURL,
		session:    session,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadResult — ответ медиахоста.
type UploadResult struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// Upload отправляет один файл (поле "file"). name — имя с расширением.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok := u.session.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
