package gcp

import (
	"context"
	"fmt"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Document extracts the text of an attached recipe or menu (PDF, scans).
type Document interface {
	DescribeDocument(ctx context.Context, data []byte, mimeType string) (*Analysis, error)
	Close() error
}

type DocumentConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

func LoadDocumentConfig(log *logger.Logger) DocumentConfig {
	return DocumentConfig{
		ProjectID:   envutil.String("DOCUMENTAI_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "", log), log),
		Location:    envutil.String("DOCUMENTAI_LOCATION", "us", log),
		ProcessorID: envutil.String("DOCUMENTAI_PROCESSOR_ID", "", log),
	}
}

func (c DocumentConfig) Enabled() bool {
	return c.ProjectID != "" && c.ProcessorID != ""
}

func (c DocumentConfig) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

type documentService struct {
	log        *logger.Logger
	client     *documentai.DocumentProcessorClient
	cfg        DocumentConfig
	maxRetries int
}

func NewDocument(ctx context.Context, cfg DocumentConfig, log *logger.Logger) (Document, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("document ai requires DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog := log.With("service", "gcp.Document")
	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &documentService{log: slog, client: c, cfg: cfg, maxRetries: 3}, nil
}

func (s *documentService) Close() error { return s.client.Close() }

func (s *documentService) DescribeDocument(ctx context.Context, data []byte, mimeType string) (*Analysis, error) {
	if len(data) == 0 {
		return &Analysis{Provider: "gcp_documentai"}, nil
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: s.cfg.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	}
	resp, err := withRetry(ctx, s.maxRetries, func() (*documentaipb.ProcessResponse, error) {
		return s.client.ProcessDocument(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	return documentAnalysis(resp.GetDocument()), nil
}

func documentAnalysis(doc *documentaipb.Document) *Analysis {
	out := &Analysis{Provider: "gcp_documentai"}
	if doc == nil {
		return out
	}
	if t := truncateWords(collapseWhitespace(doc.Text), 120); t != "" {
		out.Text = "Document: " + t
	}
	for _, e := range doc.Entities {
		if e == nil || e.Type == "" {
			continue
		}
		name := e.Type
		if e.MentionText != "" {
			name += ": " + collapseWhitespace(e.MentionText)
		}
		out.Labels = append(out.Labels, Label{Name: name, Score: float64(e.Confidence)})
	}
	return out
}
