package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repair-intake/internal/config"
	"repair-intake/internal/models"
)

// DiagnosisService asks a Gemini-style generateContent endpoint for a
// structured repair diagnosis. It is a black box to the rest of the system:
// any failure, from the network up to a malformed answer, is a single
// "unavailable" outcome. No retries.
type DiagnosisService struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewDiagnosisService creates a diagnosis client with the configured timeout.
func NewDiagnosisService(cfg *config.AIConfig) *DiagnosisService {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	return &DiagnosisService{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Diagnose requests possible causes and suggested repair steps for the given
// device model and reported issue. The answer language follows the shop's
// configured display language.
func (s *DiagnosisService) Diagnose(ctx context.Context, model, issue string, lang models.AppLanguage) (*models.DiagnosisResult, error) {
	answerLang := "English"
	if lang == models.LangFA {
		answerLang = "Persian"
	}

	prompt := fmt.Sprintf(`Diagnose a modem repair issue.
Model: %s
Reported Issue: %s
Provide the response in %s, as a JSON object with two string arrays:
"possibleCauses" (possible technical causes) and
"suggestedSteps" (step-by-step repair or testing instructions).`,
		model, issue, answerLang)

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode diagnosis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build diagnosis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diagnosis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("diagnosis API returned status %d", resp.StatusCode)
	}

	var apiResponse generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis response: %w", err)
	}

	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content in diagnosis response")
	}

	text := strings.TrimSpace(apiResponse.Candidates[0].Content.Parts[0].Text)
	var result models.DiagnosisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("malformed diagnosis answer: %w", err)
	}
	return &result, nil
}
