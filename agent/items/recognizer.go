package items

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

var ErrNoItemsRecognized = errors.New("no items recognized in image")

const recognizerSystemPrompt = "You are an inventory assistant for a moving company. " +
	"Look at the photo and list the furniture and appliances a mover would need to carry. " +
	"Respond with a JSON array only. Each element has keys: label (short lowercase noun), " +
	"count (integer, at least 1), category (furniture, appliance, fragile or other) and " +
	"size_hint (small, medium or large). Ignore people, pets and fixed fittings."

// VisionRecognizer turns a room photo into candidate inventory items
// using a multimodal chat model.
type VisionRecognizer struct {
	client *openaisdk.Client
	model  string
}

func NewVisionRecognizer(client *openaisdk.Client, model string) (*VisionRecognizer, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("vision model name is required")
	}
	return &VisionRecognizer{client: client, model: model}, nil
}

type recognizedItem struct {
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Category string `json:"category"`
	SizeHint string `json:"size_hint"`
}

func (r *VisionRecognizer) Recognize(ctx context.Context, image []byte) ([]statex.Item, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", contractx.ErrValidation)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image),
		base64.StdEncoding.EncodeToString(image),
	)

	resp, err := r.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(recognizerSystemPrompt),
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart("List the movable items in this photo."),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}

	items, err := parseRecognizedItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItemsRecognized
	}
	return items, nil
}

func parseRecognizedItems(raw string) ([]statex.Item, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: blank recognizer output", contractx.ErrSchemaViolation)
	}

	var parsed []recognizedItem
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	items := make([]statex.Item, 0, len(parsed))
	for _, p := range parsed {
		label := strings.ToLower(strings.TrimSpace(p.Label))
		if label == "" {
			continue
		}
		count := p.Count
		if count < 1 {
			count = 1
		}
		items = append(items, Enrich(statex.Item{
			Label:    label,
			Count:    count,
			Category: strings.ToLower(strings.TrimSpace(p.Category)),
			SizeHint: strings.ToLower(strings.TrimSpace(p.SizeHint)),
		}))
	}
	return items, nil
}

// stripCodeFence tolerates models that wrap JSON in markdown fences.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
