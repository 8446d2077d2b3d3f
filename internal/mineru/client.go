package mineru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pzc163/ragflow-dev/internal/chunker"
	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
	"github.com/pzc163/ragflow-dev/internal/parser"
)

// transportBackoff is the linear backoff step between connection retries.
const transportBackoff = 500 * time.Millisecond

// Client is the gateway to the external conversion service. It sends the
// document as a multipart form and maps the JSON response to normalized
// markdown plus attached table fragments. It performs no structural
// parsing and no chunking.
//
// The underlying transport pools connections and is safe for concurrent
// reuse across jobs.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log,
	}
}

func (c *Client) Name() string { return "mineru" }

type contentItem struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	TableBody string `json:"table_body"`
}

type convertResponse struct {
	MDContent   string          `json:"md_content"`
	ContentList []contentItem   `json:"content_list"`
	Layout      json.RawMessage `json:"layout"`
	Info        json.RawMessage `json:"info"`
	Error       string          `json:"error"`
}

// Parse converts a document via the conversion service, blocking with a
// deadline equal to the resolved timeout. Connection errors are retried up
// to the configured transport retry count with linear backoff; everything
// else fails fast as a ConversionFailure.
func (c *Client) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	body, contentType, err := buildForm(data, filename, cfg)
	if err != nil {
		return "", nil, fmt.Errorf("build request form: %w", err)
	}

	resp, err := c.post(ctx, cfg, body, contentType)
	if err != nil {
		return "", nil, &parser.ConversionFailure{Reason: "transport", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", nil, &parser.ConversionFailure{
			Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	var result convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, &parser.ConversionFailure{Reason: "malformed response body", Err: err}
	}
	if result.Error != "" {
		return "", nil, &parser.ConversionFailure{Reason: "service error: " + result.Error}
	}
	if strings.TrimSpace(result.MDContent) == "" {
		return "", nil, &parser.ConversionFailure{Reason: "empty md_content"}
	}

	c.log.Debug("conversion complete",
		"filename", filename,
		"markdown_bytes", len(result.MDContent),
		"content_list_items", len(result.ContentList),
	)
	return result.MDContent, extractTables(result.ContentList), nil
}

// post sends the request, retrying connection-level failures only.
func (c *Client) post(ctx context.Context, cfg config.Resolved, body []byte, contentType string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.TransportRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * transportBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.log.Warn("retrying conversion request", "attempt", attempt, "error", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func buildForm(data []byte, filename string, cfg config.Resolved) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("parse_method", cfg.ParseMethod); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("return_content_list", strconv.FormatBool(cfg.ReturnContentList)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// extractTables mines table fragments the service attached to its
// structured content list.
func extractTables(items []contentItem) []element.TableRecord {
	var tables []element.TableRecord
	for _, item := range items {
		if item.Type != "table" {
			continue
		}
		markup := item.TableBody
		if markup == "" {
			markup = item.Text
		}
		if strings.TrimSpace(markup) == "" {
			continue
		}
		markup = strings.TrimSpace(markup)
		tables = append(tables, element.TableRecord{
			RawMarkup:    markup,
			HTML:         chunker.RenderTableHTML(markup),
			PositionHint: len(tables),
		})
	}
	return tables
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
