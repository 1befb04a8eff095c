package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Vision labels an image and reads any printed text on it (packaging,
// recipe cards).
type Vision interface {
	DescribeImage(ctx context.Context, img []byte) (*Analysis, error)
	Close() error
}

type visionService struct {
	log        *logger.Logger
	client     *vision.ImageAnnotatorClient
	maxRetries int
}

func NewVision(ctx context.Context, log *logger.Logger) (Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("service", "gcp.Vision"), client: c, maxRetries: 3}, nil
}

func (s *visionService) Close() error { return s.client.Close() }

func (s *visionService) DescribeImage(ctx context.Context, img []byte) (*Analysis, error) {
	if len(img) == 0 {
		return &Analysis{Provider: "gcp_vision"}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: maxLabels},
			{Type: visionpb.Feature_TEXT_DETECTION},
		},
	}}}
	resp, err := withRetry(ctx, s.maxRetries, func() (*visionpb.BatchAnnotateImagesResponse, error) {
		return s.client.BatchAnnotateImages(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &Analysis{Provider: "gcp_vision"}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate: %s", r0.Error.Message)
	}
	text := ""
	if r0.FullTextAnnotation != nil {
		text = r0.FullTextAnnotation.Text
	}
	return visionAnalysis(r0.LabelAnnotations, text), nil
}

func visionAnalysis(ann []*visionpb.EntityAnnotation, text string) *Analysis {
	out := &Analysis{Provider: "gcp_vision"}
	for _, a := range ann {
		if a == nil || strings.TrimSpace(a.Description) == "" {
			continue
		}
		out.Labels = append(out.Labels, Label{Name: a.Description, Score: float64(a.Score)})
	}
	sort.SliceStable(out.Labels, func(i, j int) bool { return out.Labels[i].Score > out.Labels[j].Score })
	out.Text = describeLabels("Shows", out.Labels)
	if t := truncateWords(collapseWhitespace(text), 40); t != "" {
		if out.Text != "" {
			out.Text += " "
		}
		out.Text += fmt.Sprintf("Text: %q.", t)
	}
	return out
}

// describeLabels renders "Shows pasta, tomato, basil." from the top labels.
func describeLabels(verb string, labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, maxLabels)
	for _, l := range labels {
		if len(names) == maxLabels {
			break
		}
		names = append(names, strings.ToLower(l.Name))
	}
	return verb + " " + strings.Join(names, ", ") + "."
}
