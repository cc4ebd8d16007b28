package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

func init() {
	env.RegisterValidation("GEMINI_API_KEY", "required")
}

const defaultModelID = "gemini-2.5-flash-image"

// clawDirective is the one canonical instruction sent with every generation request.
// It is deliberately not configurable so that every derivative shares the same look.
const clawDirective = `Create a reinterpretation of the Warplet, the main character of the image, in which it has lobster claws instead of arms, lobster legs instead of feet, and a lobster tail and antennae. Preserve the original cartoon illustration style, proportions, line work, shading, and color palette. The output image proportion must always be 1:1.`

// ErrNoImageReturned is returned when the model responds without an image part
var ErrNoImageReturned = errors.New("model did not return an image payload")

// Generated is the binary result of one image-to-image generation
type Generated struct {
	Data     []byte
	MimeType string
}

// Generator submits images to Gemini for the fixed clawplet transformation. The call is
// the dominant-latency step of the pipeline; callers own the deadline.
type Generator struct {
	client  *genai.Client
	modelID string
}

// NewGenerator creates a Generator using GEMINI_API_KEY and GEMINI_MODEL_ID
func NewGenerator(ctx context.Context) *Generator {
	client, err := genai.NewClient(ctx, option.WithAPIKey(env.GetString("GEMINI_API_KEY")))
	if err != nil {
		panic(fmt.Sprintf("error creating genai client: %s", err))
	}

	modelID := env.GetString("GEMINI_MODEL_ID")
	if modelID == "" {
		modelID = defaultModelID
	}

	return &Generator{client: client, modelID: modelID}
}

// Close closes the underlying client connection
func (g *Generator) Close() error {
	return g.client.Close()
}

// Transform sends an image to the model with the fixed directive and returns the first
// image part of the response
func (g *Generator) Transform(ctx context.Context, data []byte, mimeType string) (Generated, error) {
	model := g.client.GenerativeModel(g.modelID)

	resp, err := model.GenerateContent(ctx, genai.ImageData(formatOf(mimeType), data), genai.Text(clawDirective))
	if err != nil {
		return Generated{}, fmt.Errorf("error generating image: %w", err)
	}

	generated, err := imageFromResponse(resp)
	if err != nil {
		return Generated{}, err
	}

	logger.For(ctx).Infof("model returned %d bytes of %s", len(generated.Data), generated.MimeType)
	return generated, nil
}

// imageFromResponse scans all candidates for the first inline image part
func imageFromResponse(resp *genai.GenerateContentResponse) (Generated, error) {
	if resp == nil {
		return Generated{}, ErrNoImageReturned
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				mimeType := blob.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return Generated{Data: blob.Data, MimeType: mimeType}, nil
			}
		}
	}
	return Generated{}, ErrNoImageReturned
}

// formatOf converts a MIME type to the bare format name the genai SDK expects
func formatOf(mimeType string) string {
	format := strings.TrimPrefix(mimeType, "image/")
	if idx := strings.IndexByte(format, ';'); idx != -1 {
		format = format[:idx]
	}
	if format == "" {
		format = "png"
	}
	return format
}
