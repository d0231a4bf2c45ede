// Copyright (C) 2024 Tim Bastin, l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxGenerateTries = 3
	retryDelay       = 15 * time.Second
)

// APIKeyFromEnv reads the Gemini key from the environment, empty when
// unset.
func APIKeyFromEnv() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// GeminiClient talks to the generateContent endpoint of one model.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		apiKey:     apiKey,
		sleep:      time.Sleep,
	}
}

type promptPart struct {
	Text string `json:"text"`
}

type promptContent struct {
	Parts []promptPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []promptContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one prompt and returns the first candidate's text.
// Rate limits are retried with a linearly growing delay; everything else
// fails immediately.
func (client *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxGenerateTries; attempt++ {
		text, err := client.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRateLimit(err) || attempt == maxGenerateTries {
			return "", err
		}
		wait := retryDelay * time.Duration(attempt)
		slog.Warn("rate limited, backing off", "attempt", attempt, "wait", wait)
		client.sleep(wait)
	}
	return "", lastErr
}

func (client *GeminiClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []promptContent{{Parts: []promptPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.5,
			MaxOutputTokens: 2048,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "could not marshal generate request")
	}

	url := client.baseURL + "/models/" + client.model + ":generateContent?key=" + client.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "could not create generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not reach the model")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read model response")
	}

	if res.StatusCode == http.StatusTooManyRequests {
		return "", errors.Errorf("rate limited: status 429: %s", strings.TrimSpace(string(body)))
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("model returned status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "could not parse model response")
	}
	if parsed.Error != nil {
		return "", errors.Errorf("model error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("model returned no candidates")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limited")
}
