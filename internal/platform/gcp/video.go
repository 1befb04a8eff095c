package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Video labels a cooking clip already uploaded to the media bucket.
type Video interface {
	DescribeVideo(ctx context.Context, gcsURI string) (*Analysis, error)
	Close() error
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries int
}

func NewVideo(ctx context.Context, log *logger.Logger) (Video, error) {
	c, err := videointelligence.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{log: log.With("service", "gcp.Video"), client: c, maxRetries: 3}, nil
}

func (s *videoService) Close() error { return s.client.Close() }

func (s *videoService) DescribeVideo(ctx context.Context, gcsURI string) (*Analysis, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{vipb.Feature_LABEL_DETECTION, vipb.Feature_TEXT_DETECTION},
		VideoContext: &vipb.VideoContext{
			LabelDetectionConfig: &vipb.LabelDetectionConfig{LabelDetectionMode: vipb.LabelDetectionMode_SHOT_AND_FRAME_MODE},
		},
	}
	resp, err := withRetry(ctx, s.maxRetries, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return &Analysis{Provider: "gcp_videointelligence"}, nil
	}
	return videoAnalysis(resp.AnnotationResults[0]), nil
}

func videoAnalysis(ar *vipb.VideoAnnotationResults) *Analysis {
	best := map[string]float64{}
	collect := func(anns []*vipb.LabelAnnotation) {
		for _, a := range anns {
			if a == nil || a.Entity == nil || a.Entity.Description == "" {
				continue
			}
			for _, seg := range a.Segments {
				if seg != nil && float64(seg.Confidence) > best[a.Entity.Description] {
					best[a.Entity.Description] = float64(seg.Confidence)
				}
			}
		}
	}
	collect(ar.SegmentLabelAnnotations)
	collect(ar.ShotLabelAnnotations)

	out := &Analysis{Provider: "gcp_videointelligence"}
	for name, score := range best {
		out.Labels = append(out.Labels, Label{Name: name, Score: score})
	}
	sort.Slice(out.Labels, func(i, j int) bool {
		if out.Labels[i].Score != out.Labels[j].Score {
			return out.Labels[i].Score > out.Labels[j].Score
		}
		return out.Labels[i].Name < out.Labels[j].Name
	})
	out.Text = describeLabels("Video shows", out.Labels)

	var onScreen []string
	for _, t := range ar.TextAnnotations {
		if t != nil && strings.TrimSpace(t.Text) != "" {
			onScreen = append(onScreen, t.Text)
		}
	}
	if t := truncateWords(collapseWhitespace(strings.Join(onScreen, " ")), 30); t != "" {
		if out.Text != "" {
			out.Text += " "
		}
		out.Text += fmt.Sprintf("On screen: %q.", t)
	}
	return out
}
