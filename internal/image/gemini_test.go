package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// requestBody is the wire shape of a generateContent call, enough to check
// what the generator sent.
type requestBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *GeminiGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &GeminiGenerator{Client: srv.Client(), Key: "test-key", BaseURL: srv.URL}
}

func TestGeminiGenerateReturnsFirstInlineImage(t *testing.T) {
	source := Encoded{Data: []byte("room"), MediaType: "image/jpeg"}
	generated := []byte("decorated")

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/"+DefaultGeminiModel+":generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req requestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) != 1 {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].InlineData == nil {
			t.Errorf("unexpected parts: %#v", parts)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if parts[0].InlineData.MimeType != "image/jpeg" {
			t.Errorf("inline data = %#v", parts[0].InlineData)
		}
		if parts[0].InlineData.Data != base64.StdEncoding.EncodeToString(source.Data) {
			t.Errorf("inline data payload mismatch")
		}
		if !strings.Contains(parts[1].Text, `"Estilo Industrial"`) {
			t.Errorf("instruction does not quote the style: %q", parts[1].Text)
		}
		if got := strings.Join(req.GenerationConfig.ResponseModalities, ","); got != "TEXT,IMAGE" {
			t.Errorf("response modalities = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"aqui está"},
			{"inlineData":{"mimeType":"image/png","data":"` + base64.StdEncoding.EncodeToString(generated) + `"}}
		]}}]}`))
	})

	out, err := gen.Generate(context.Background(), Params{Source: source, Prompt: " Estilo Industrial "})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if string(out.Data) != string(generated) {
		t.Fatalf("data = %q, want %q", out.Data, generated)
	}
	if out.MediaType != "image/png" {
		t.Fatalf("media type = %q", out.MediaType)
	}
}

func TestGeminiGenerateWithoutImagePart(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "text only", body: `{"candidates":[{"content":{"parts":[{"text":"não posso"}]},"finishReason":"STOP"}]}`},
		{name: "no candidates", body: `{"candidates":[]}`},
		{name: "blocked", body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := gen.Generate(context.Background(), Params{Source: Encoded{Data: []byte("x")}, Prompt: "boho"})
			if !errors.Is(err, ErrEmptyResult) {
				t.Fatalf("err = %v, want ErrEmptyResult", err)
			}
		})
	}
}

func TestGeminiGeneratePassesAPIMessageThrough(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})
	_, err := gen.Generate(context.Background(), Params{Source: Encoded{Data: []byte("x")}, Prompt: "boho"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if err.Error() != "quota exceeded" {
		t.Fatalf("message = %q, want %q", err.Error(), "quota exceeded")
	}
}

func TestGeminiGenerateEmptyErrorBody(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := gen.Generate(context.Background(), Params{Source: Encoded{Data: []byte("x")}, Prompt: "boho"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want *APIError with 503", err)
	}
	if err.Error() != "gemini status 503" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestGeminiGeneratePlainErrorBody(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	})
	_, err := gen.Generate(context.Background(), Params{Source: Encoded{Data: []byte("x")}, Prompt: "boho"})
	if err == nil || err.Error() != "upstream down" {
		t.Fatalf("err = %v, want upstream down", err)
	}
}
