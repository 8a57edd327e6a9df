package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dmorgan81/decorai/internal/log"
	"github.com/samber/do"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel   = "gemini-2.5-flash-image"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/"
)

const instructionTemplate = `ATUE COMO UM DESIGNER DE INTERIORES MASTER.

TAREFA: Redecorar completamente o cenário desta foto baseado no seguinte pedido: "%s".

REGRAS CRÍTICAS:
1. PRESERVE A ESTRUTURA: Não altere a posição de paredes principais, janelas ou portas.
2. FOTORREALISMO: O resultado deve parecer uma fotografia profissional de revista de arquitetura.
3. COERÊNCIA: Substitua móveis antigos por novos móveis de design que sigam o estilo solicitado.
4. ILUMINAÇÃO: Aplique uma nova iluminação global que combine com o estilo sugerido (quente, fria, natural).
5. MATERIAIS: Adicione texturas realistas (madeira, mármore, tecidos finos, metal polido).

Retorne a imagem final processada.`

// GeminiGenerator asks a Gemini image model to redecorate the source photo.
// The SDK client is built on first use from the exported fields.
type GeminiGenerator struct {
	Client  *http.Client
	Key     string
	Model   string
	BaseURL string

	once sync.Once
	sdk  *genai.Client
	err  error
}

func NewGeminiGenerator(i *do.Injector) (Generator, error) {
	return &GeminiGenerator{
		Client:  do.MustInvoke[*http.Client](i),
		Key:     do.MustInvokeNamed[string](i, "gemini_key"),
		Model:   do.MustInvokeNamed[string](i, "gemini_model"),
		BaseURL: do.MustInvokeNamed[string](i, "gemini_base_url"),
	}, nil
}

func Instruction(style string) string {
	return fmt.Sprintf(instructionTemplate, strings.TrimSpace(style))
}

func (g *GeminiGenerator) Generate(ctx context.Context, params Params) (Encoded, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("gemini").With("model", g.model())
	log.Info("generating decorated image", "source_type", params.Source.MediaType, "source_bytes", len(params.Source.Data))

	client, err := g.client(ctx)
	if err != nil {
		return Encoded{}, fmt.Errorf("gemini client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(params.Source.Data, params.Source.mediaType()),
			genai.NewPartFromText(Instruction(params.Prompt)),
		}, genai.RoleUser),
	}
	resp, err := client.Models.GenerateContent(ctx, g.model(), contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	})
	if err != nil {
		return Encoded{}, apiError(err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				img := Encoded{Data: part.InlineData.Data, MediaType: part.InlineData.MIMEType}
				if img.MediaType == "" {
					img.MediaType = DefaultMediaType
				}
				log.Info("received decorated image", "type", img.MediaType, "bytes", len(img.Data))
				return img, nil
			}
		}
		if candidate.FinishReason != "" {
			log.Warn("candidate carried no image", "finish_reason", candidate.FinishReason)
		}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		log.Warn("prompt blocked", "reason", resp.PromptFeedback.BlockReason)
	}
	return Encoded{}, ErrEmptyResult
}

// apiError keeps the service's own message so callers can show it verbatim.
func apiError(err error) error {
	var sdkErr genai.APIError
	if !errors.As(err, &sdkErr) {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	if msg := strings.TrimSpace(sdkErr.Message); msg != "" {
		return &APIError{StatusCode: sdkErr.Code, Message: msg}
	}
	return &APIError{StatusCode: sdkErr.Code, Message: fmt.Sprintf("gemini status %d", sdkErr.Code)}
}

func (g *GeminiGenerator) client(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		httpClient := g.Client
		if httpClient == nil {
			httpClient = http.DefaultClient
		}
		g.sdk, g.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      g.Key,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  httpClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL()},
		})
	})
	return g.sdk, g.err
}

func (g *GeminiGenerator) model() string {
	if g.Model != "" {
		return g.Model
	}
	return DefaultGeminiModel
}

func (g *GeminiGenerator) baseURL() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return DefaultGeminiBaseURL
}
