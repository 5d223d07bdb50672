// Package layoutml adapts remote layout-aware models to the extraction engine
// contract. Each configured model endpoint becomes one engine named
// "layoutml:<model>".
package layoutml

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

type ModelConfig struct {
	Name       string
	Endpoint   string // full URL; POST with a JSON body
	APIKey     string // sent as a bearer token when set
	Timeout    time.Duration
	MaxRetries int
}

type request struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Document  string `json:"document_base64"`
	Lang      string `json:"lang,omitempty"`
	MaxPages  int    `json:"max_pages,omitempty"`
}

type responseTable struct {
	PageNumber int        `json:"page_number"`
	Rows       [][]string `json:"rows"`
}

type response struct {
	Pages      []extract.Page  `json:"pages"`
	Tables     []responseTable `json:"tables"`
	Confidence *float64        `json:"confidence"`
	Title      string          `json:"title"`
}

type Engine struct {
	cfg    ModelConfig
	client *http.Client
	schema *jsonschema.Schema
	logger *slog.Logger
}

// New validates the model config and compiles the response contract once.
// client may be nil.
func New(cfg ModelConfig, client *http.Client, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return nil, errors.New("layout model name is required")
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return nil, fmt.Errorf("layout model %q: endpoint must be an http(s) URL", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	schema, err := compileSchema(responseSchema)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, client: client, schema: schema, logger: logger.With("model", cfg.Name)}, nil
}

func (e *Engine) Name() string { return constants.LayoutMLPrefix + e.cfg.Name }

// Close releases pooled connections to the model server.
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *Engine) Extract(ctx context.Context, doc []byte, opts extract.Options) extract.Result {
	var selfConf float64
	var notes []string
	res := extract.Guard(ctx, e.Name(), e.logger, func(ctx context.Context) (*extract.Payload, error) {
		if len(doc) == 0 {
			return nil, extract.ErrEmptyDocument
		}
		reqID := uuid.New().String()
		headers := map[string]string{}
		if e.cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + e.cfg.APIKey
		}
		body := request{
			RequestID: reqID,
			Model:     e.cfg.Name,
			Document:  base64.StdEncoding.EncodeToString(doc),
			Lang:      opts.Lang,
			MaxPages:  opts.MaxPages,
		}

		raw, status, err := sendJSON(ctx, e.client, e.cfg.Endpoint, reqID, body, headers, e.cfg.MaxRetries, e.logger)
		if err != nil {
			if status != 0 {
				return nil, fmt.Errorf("layout model %s: %w: %s", e.cfg.Name, err, snippet(raw))
			}
			return nil, fmt.Errorf("layout model %s: %w", e.cfg.Name, err)
		}

		clean, adjusted, err := sanitize(raw)
		if err != nil {
			return nil, err
		}
		notes = adjusted
		if len(adjusted) > 0 {
			e.logger.Debug("layoutml.sanitized", "req_id", reqID, "adjusted", strings.Join(adjusted, ","))
		}
		if err := validate(e.schema, clean); err != nil {
			return nil, err
		}

		var out response
		if err := json.Unmarshal(clean, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if out.Confidence != nil {
			selfConf = *out.Confidence
		}
		tables := make([]extract.Table, 0, len(out.Tables))
		for _, t := range out.Tables {
			tables = append(tables, extract.Table{PageNumber: t.PageNumber, Rows: t.Rows, Method: e.cfg.Name})
		}
		pages := out.Pages
		if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
			pages = pages[:opts.MaxPages]
		}
		payload := extract.NewPayload(pages, tables, len(pages))
		payload.Metadata.Title = out.Title
		return payload, nil
	})
	if res.Success {
		res.SelfConfidence = selfConf
		res.Warnings = notes
	}
	return res
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
