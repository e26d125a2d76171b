package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/extract"
)

// ExtractTransaction implements extract.Extractor against Ollama's
// /api/generate endpoint. Image requests go through the vision path (base64
// attachment), text requests reuse the same model text-only.
func (c *Client) ExtractTransaction(ctx context.Context, req extract.Request) (entity.Candidate, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	categories := constants.AsStringSlice()
	body := map[string]any{
		"model":  c.cfg.Model,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"top_p":       c.cfg.TopP,
		},
	}

	switch {
	case req.ImagePath != "":
		img, err := readAsBase64(req.ImagePath)
		if err != nil {
			return entity.Candidate{}, nil, fmt.Errorf("read image: %w", err)
		}
		body["prompt"] = extract.BuildVisionPrompt(req.DefaultCurrency, categories)
		body["images"] = []string{img}
	case req.Text != "":
		body["prompt"] = extract.BuildTextPrompt(req.Text, req.DefaultCurrency, categories)
	default:
		return entity.Candidate{}, nil, fmt.Errorf("extract request needs an image path or text")
	}

	c.log.Info("extract.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"has_image", req.ImagePath != "",
		"text_len", len(req.Text),
	)

	raw, err := c.post(ctx, "/api/generate", body)
	if err != nil {
		c.log.Error("extract.http_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, nil, err
	}

	var gen struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		c.log.Error("extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if strings.TrimSpace(gen.Response) == "" {
		c.log.Error("extract.empty_response", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, nil, extract.ErrEmptyResponse
	}

	parsed, content, err := extract.DecodeModelJSON(gen.Response)
	if err != nil {
		c.log.Error("extract.parse_error", "req_id", rid, "error", err,
			"response_len", len(gen.Response),
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, nil, err
	}

	schema := extract.BuildCandidateJSONSchema()
	if err := extract.ValidateJSONAgainstSchema(schema, content); err != nil {
		c.log.Error("extract.schema_validation_failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, content, fmt.Errorf("schema validation failed: %w", err)
	}

	candidate, err := extract.Normalize(parsed, req.DefaultCurrency, time.Now().UTC())
	if err != nil {
		c.log.Error("extract.normalize_failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Candidate{}, content, fmt.Errorf("normalize extraction: %w", err)
	}

	c.log.Info("extract.ok",
		"req_id", rid,
		"amount", candidate.Amount.String(),
		"merchant", candidate.Merchant,
		"category", candidate.Category,
		"confidence", candidate.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return candidate, content, nil
}

// Health checks the service is reachable and returns the installed models.
func (c *Client) Health(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama health: status %d", resp.StatusCode)
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("ollama health: decode: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("ollama response body close error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func readAsBase64(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
