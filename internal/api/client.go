package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "ATTACHR_HTTP_TIMEOUT"
	apiTokenEnvKey     = "ATTACHR_API_TOKEN"

	uploadPath       = "/files/upload"
	remoteUploadPath = "/remote-files/upload"
	datasetInitPath  = "/datasets/init"
)

// Client is a simple HTTP client for the upload API.
type Client struct {
	baseURL       string
	publicBaseURL string
	http          *http.Client
	uploadHTTP    *http.Client
	authToken     string
}

// NewClient creates a new API client. publicBaseURL is used for requests made
// from a public (shared, unauthenticated) context and may be empty.
func NewClient(baseURL, publicBaseURL string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		http:          &http.Client{Timeout: httpTimeoutFromEnv()},
		// Uploads stream for as long as the payload needs; callers bound them
		// with their context instead.
		uploadHTTP: &http.Client{},
		authToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Ping checks that the upload API behind the chosen base answers its upload
// config endpoint, and returns the base it reached.
func (c *Client) Ping(ctx context.Context, public bool) (string, error) {
	return c.base(public), c.do(ctx, http.MethodGet, uploadPath, public, nil, nil, nil)
}

// GetUploadConfig fetches the remote upload limits.
func (c *Client) GetUploadConfig(ctx context.Context) (UploadConfigResponse, error) {
	var resp UploadConfigResponse
	err := c.do(ctx, http.MethodGet, uploadPath, false, nil, nil, &resp)
	return resp, err
}

// UploadRemoteFileInfo asks the backend to fetch rawURL and returns what it found.
func (c *Client) UploadRemoteFileInfo(ctx context.Context, rawURL string, public bool) (RemoteFileInfo, error) {
	var resp RemoteFileInfo
	err := c.do(ctx, http.MethodPost, remoteUploadPath, public, nil, RemoteFileRequest{URL: rawURL}, &resp)
	return resp, err
}

// CreateDataset creates a dataset from uploaded files and starts indexing.
func (c *Client) CreateDataset(ctx context.Context, fileIDs []string) (DatasetInitResponse, error) {
	var resp DatasetInitResponse
	err := c.do(ctx, http.MethodPost, datasetInitPath, false, nil, DatasetInitRequest{FileIDs: fileIDs}, &resp)
	return resp, err
}

// GetIndexingStatus returns the indexing status of one dataset.
func (c *Client) GetIndexingStatus(ctx context.Context, datasetID string) (IndexingStatusResponse, error) {
	var resp IndexingStatusResponse
	err := c.do(ctx, http.MethodGet, "/datasets/"+url.PathEscape(datasetID)+"/indexing-status", false, nil, nil, &resp)
	return resp, err
}

// FileUpload describes one multipart file upload.
type FileUpload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
	Public   bool
	// Endpoint overrides the upload path, or the whole URL when absolute.
	Endpoint string
}

// UploadFile streams one file as multipart form data. onProgress receives the
// number of payload bytes sent so far and the declared total.
func (c *Client) UploadFile(ctx context.Context, upload FileUpload, onProgress func(loaded, total int64)) (FileUploadResponse, error) {
	var resp FileUploadResponse
	if upload.Content == nil {
		return resp, fmt.Errorf("upload content is required")
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	content := &countingReader{r: upload.Content, total: upload.Size, onProgress: onProgress}

	go func() {
		err := writeFilePart(writer, upload, content)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(upload.Endpoint, uploadPath, upload.Public), pr)
	if err != nil {
		_ = pr.Close()
		return resp, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.uploadHTTP.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, err
	}
	if resp.ID == "" {
		return resp, fmt.Errorf("upload response is missing id")
	}
	return resp, nil
}

func writeFilePart(writer *multipart.Writer, upload FileUpload, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, upload.Filename))
	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

type countingReader struct {
	r          io.Reader
	loaded     int64
	total      int64
	onProgress func(loaded, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.loaded += int64(n)
		if c.onProgress != nil {
			c.onProgress(c.loaded, c.total)
		}
	}
	return n, err
}

func (c *Client) endpointURL(override, fallback string, public bool) string {
	override = strings.TrimSpace(override)
	if strings.HasPrefix(override, "http://") || strings.HasPrefix(override, "https://") {
		return override
	}
	path := fallback
	if override != "" {
		path = "/" + strings.TrimLeft(override, "/")
	}
	return c.base(public) + path
}

func (c *Client) base(public bool) string {
	if public && c.publicBaseURL != "" {
		return c.publicBaseURL
	}
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, public bool, query url.Values, body any, out any) error {
	endpoint := c.base(public) + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	}
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
