package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// Client uploads images to the external media service over multipart HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	folderRoot string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a media client
func NewClient(baseURL, apiKey, folderRoot string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		folderRoot: folderRoot,
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// Upload is one stored image
type Upload struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// UploadImage stores a single image under the given folder and returns its
// public URL.
func (c *Client) UploadImage(ctx context.Context, folder, filename string, content io.Reader) (*Upload, error) {
	ctx, span := util.StartSpan(ctx, "media.UploadImage")
	defer span.End()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read image content: %w", err)
	}
	if err := writer.WriteField("folder", c.folderPath(folder)); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.ImageUploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("media service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		util.ImageUploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("media service returned status %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		util.ImageUploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode media service response: %w", err)
	}

	util.ImageUploadsTotal.WithLabelValues("success").Inc()
	c.logger.Info("Image uploaded",
		zap.String("folder", folder),
		zap.String("public_id", parsed.PublicID))

	return &Upload{URL: parsed.SecureURL, PublicID: parsed.PublicID}, nil
}

// File pairs a filename with its content for batch uploads
type File struct {
	Name    string
	Content io.Reader
}

// UploadImages stores a batch of images under one folder. Uploads run
// sequentially; the first failure aborts the batch and earlier uploads are
// kept (the caller decides whether to reference them).
func (c *Client) UploadImages(ctx context.Context, folder string, files []File) ([]Upload, error) {
	uploads := make([]Upload, 0, len(files))
	for _, f := range files {
		up, err := c.UploadImage(ctx, folder, f.Name, f.Content)
		if err != nil {
			return uploads, err
		}
		uploads = append(uploads, *up)
	}
	return uploads, nil
}

// UserFolder is where profile images live
func (c *Client) UserFolder(userID int64) string {
	return fmt.Sprintf("users/%d", userID)
}

// ProductFolder is where listing images live
func (c *Client) ProductFolder(sellerID int64) string {
	return fmt.Sprintf("products/%d", sellerID)
}

func (c *Client) folderPath(folder string) string {
	if c.folderRoot == "" {
		return folder
	}
	return c.folderRoot + "/" + folder
}
