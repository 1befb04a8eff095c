package media

import (
	"context"
	"encoding/base64"
	"fmt"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/platform/gcp"
	"github.com/yungbote/cookgpt-backend/internal/platform/openai"
)

// Item is an uploaded attachment handed to a Describer.
type Item struct {
	Type     types.MediaType
	MimeType string
	Data     []byte
	// URI is the gs:// location, empty when the storage has none.
	URI string
}

// Describer turns an attachment into text the language model can use.
type Describer interface {
	Describe(ctx context.Context, item Item) (*gcp.Analysis, error)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(ctx context.Context, item Item) (*gcp.Analysis, error)

func (f DescriberFunc) Describe(ctx context.Context, item Item) (*gcp.Analysis, error) {
	return f(ctx, item)
}

func VisionDescriber(v gcp.Vision) Describer {
	return DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		return v.DescribeImage(ctx, item.Data)
	})
}

// OpenAIImageDescriber captions images with the vision model, sending the
// normalized JPEG inline as a data URL.
func OpenAIImageDescriber(c openai.Client, prompt string) Describer {
	return DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		mime := item.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(item.Data))
		text, err := c.DescribeImage(ctx, prompt, openai.ImageInput{URL: url, Detail: "low"})
		if err != nil {
			return nil, err
		}
		return &gcp.Analysis{Provider: "openai", Text: text}, nil
	})
}

func SpeechDescriber(s gcp.Speech) Describer {
	return DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		return s.Transcribe(ctx, item.Data, item.MimeType)
	})
}

// VideoDescriber reads the clip from object storage, so it needs a
// storage that exposes gs:// URIs.
func VideoDescriber(v gcp.Video) Describer {
	return DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		if item.URI == "" {
			return nil, fmt.Errorf("video analysis needs a gs:// object")
		}
		return v.DescribeVideo(ctx, item.URI)
	})
}

func DocumentDescriber(d gcp.Document) Describer {
	return DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		return d.DescribeDocument(ctx, item.Data, item.MimeType)
	})
}
