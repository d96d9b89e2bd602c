package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultMSEndpoint    = "https://api.cognitive.microsofttranslator.com"
	DefaultNaverEndpoint = "https://openapi.naver.com/v1/papago/n2mt"
)

// MSProvider speaks the Microsoft Translator v3 REST contract and
// serves both translation hops and language detection.
type MSProvider struct {
	endpoint string
	key      string
	client   *http.Client
}

func NewMSProvider(endpoint, key string) *MSProvider {
	if endpoint == "" {
		endpoint = DefaultMSEndpoint
	}

	return &MSProvider{
		endpoint: endpoint,
		key:      key,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type msText struct {
	Text string `json:"Text"`
}

func (p *MSProvider) post(ctx context.Context, path string, query url.Values, text string, out any) error {
	body, err := json.Marshal([]msText{{Text: text}})
	if err != nil {
		return err
	}

	query.Set("api-version", "3.0")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, snippet)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *MSProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)

	var result []struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := p.post(ctx, "/translate", query, text, &result); err != nil {
		return "", err
	}

	if len(result) == 0 || len(result[0].Translations) == 0 {
		return "", fmt.Errorf("empty translation result")
	}

	return result[0].Translations[0].Text, nil
}

func (p *MSProvider) Detect(ctx context.Context, text string) (string, error) {
	var result []struct {
		Language string `json:"language"`
	}
	if err := p.post(ctx, "/detect", url.Values{}, text, &result); err != nil {
		return "", err
	}

	if len(result) == 0 || result[0].Language == "" {
		return "", fmt.Errorf("empty detection result")
	}

	return result[0].Language, nil
}

// NaverProvider speaks the Naver Papago NMT contract, used for the
// Korean/Japanese hops.
type NaverProvider struct {
	endpoint     string
	clientId     string
	clientSecret string
	client       *http.Client
}

func NewNaverProvider(endpoint, clientId, clientSecret string) *NaverProvider {
	if endpoint == "" {
		endpoint = DefaultNaverEndpoint
	}

	return &NaverProvider{
		endpoint:     endpoint,
		clientId:     clientId,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *NaverProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	form := url.Values{}
	form.Set("source", from)
	form.Set("target", to)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Naver-Client-Id", p.clientId)
	req.Header.Set("X-Naver-Client-Secret", p.clientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		Message struct {
			Result struct {
				TranslatedText string `json:"translatedText"`
			} `json:"result"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if result.Message.Result.TranslatedText == "" {
		return "", fmt.Errorf("empty translation result")
	}

	return result.Message.Result.TranslatedText, nil
}
