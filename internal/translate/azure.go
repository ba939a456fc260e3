package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mgpai22/vtt-translate/internal/language"
)

const (
	DefaultAzureEndpoint      = "https://api.cognitive.microsofttranslator.com"
	DefaultAzureBatchSize     = 100
	DefaultAzureMaxBatchChars = 40000

	azureAPIVersion = "3.0"

	// azure error codes for an invalid source or target language
	azureInvalidSource = 400035
	azureInvalidTarget = 400036

	maxResponseBytes = 16 << 20
)

// LanguageInfo describes one entry of the Azure translation language list.
type LanguageInfo struct {
	Code       string `json:"-"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
	Dir        string `json:"dir"`
}

// implements Translator using the Azure AI Translator REST API
type AzureTranslator struct {
	client   *http.Client
	endpoint string
	key      string
	region   string
	options  Options
	limiter  *rate.Limiter

	mu        sync.Mutex
	languages []LanguageInfo
}

func NewAzureTranslator(apiKey string, opts Options) (*AzureTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("azure region is required")
	}
	return newAzureClient(apiKey, opts), nil
}

// ListAzureLanguages fetches the Azure translation language list. The
// endpoint needs no credentials.
func ListAzureLanguages(ctx context.Context, opts Options) ([]LanguageInfo, error) {
	return newAzureClient("", opts).Languages(ctx)
}

func newAzureClient(apiKey string, opts Options) *AzureTranslator {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultAzureEndpoint
	}

	return &AzureTranslator{
		client:   client,
		endpoint: endpoint,
		key:      apiKey,
		region:   opts.Region,
		options:  opts,
		limiter:  newLimiter(opts.RequestsPerSecond),
	}
}

func (t *AzureTranslator) batches(items []TranslationItem) [][]TranslationItem {
	size := t.options.BatchSize
	if size <= 0 {
		size = DefaultAzureBatchSize
	}
	chars := t.options.MaxBatchChars
	if chars <= 0 {
		chars = DefaultAzureMaxBatchChars
	}
	return splitBatches(items, size, chars)
}

func (t *AzureTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return runBatches(ctx, t.batches(items), 1, t.limiter, t.translateBatch)
}

// Batches are bounded by BatchSize items and MaxBatchChars characters. Up to
// concurrency batches are in flight at once.
func (t *AzureTranslator) TranslateWithConcurrency(
	ctx context.Context,
	items []TranslationItem,
	concurrency int,
) ([]TranslationResult, error) {
	return runBatches(ctx, t.batches(items), concurrency, t.limiter, t.translateBatch)
}

type azureTextItem struct {
	Text string `json:"Text"`
}

type azureDetectedLanguage struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

type azureTranslation struct {
	Text string `json:"text"`
	To   string `json:"to"`
}

type azureTranslateItem struct {
	DetectedLanguage *azureDetectedLanguage `json:"detectedLanguage"`
	Translations     []azureTranslation     `json:"translations"`
}

type azureErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *AzureTranslator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	params := url.Values{}
	params.Set("api-version", azureAPIVersion)
	params.Set("to", t.options.TargetLanguage)
	if t.options.InputLanguage != "" {
		params.Set("from", t.options.InputLanguage)
	}

	body := make([]azureTextItem, len(items))
	for i, item := range items {
		body[i] = azureTextItem{Text: item.Text}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.endpoint+"/translate?"+params.Encode(),
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Ocp-Apim-Subscription-Key", t.key)
	req.Header.Set("Ocp-Apim-Subscription-Region", t.region)
	req.Header.Set("X-ClientTraceId", uuid.NewString())

	var resp []azureTranslateItem
	if err := t.do(req, &resp); err != nil {
		return nil, err
	}

	if len(resp) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(resp))
	}

	results := make([]TranslationResult, len(items))
	for i, item := range resp {
		if len(item.Translations) == 0 {
			return nil, fmt.Errorf("no translation returned for item %d", items[i].Index)
		}
		r := TranslationResult{
			Index: items[i].Index,
			Text:  item.Translations[0].Text,
		}
		switch {
		case t.options.InputLanguage != "":
			r.DetectedLanguage = t.options.InputLanguage
			r.DetectedScore = 1
		case item.DetectedLanguage != nil:
			r.DetectedLanguage = item.DetectedLanguage.Language
			r.DetectedScore = item.DetectedLanguage.Score
		}
		results[i] = r
	}
	return results, nil
}

// Languages lists the languages Azure can translate to, sorted by code. The
// list is fetched once per translator.
func (t *AzureTranslator) Languages(ctx context.Context) ([]LanguageInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.languages != nil {
		return t.languages, nil
	}

	params := url.Values{}
	params.Set("api-version", azureAPIVersion)
	params.Set("scope", "translation")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		t.endpoint+"/languages?"+params.Encode(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-ClientTraceId", uuid.NewString())

	var resp struct {
		Translation map[string]LanguageInfo `json:"translation"`
	}
	if err := t.do(req, &resp); err != nil {
		return nil, err
	}

	languages := make([]LanguageInfo, 0, len(resp.Translation))
	for code, info := range resp.Translation {
		info.Code = code
		languages = append(languages, info)
	}
	sort.Slice(languages, func(i, j int) bool {
		return languages[i].Code < languages[j].Code
	})

	t.languages = languages
	return languages, nil
}

// Direction returns "ltr" or "rtl" for a target language code.
func (t *AzureTranslator) Direction(ctx context.Context, code string) (string, error) {
	languages, err := t.Languages(ctx)
	if err != nil {
		return "", err
	}
	for _, info := range languages {
		if strings.EqualFold(info.Code, code) {
			return info.Dir, nil
		}
	}
	return "", &language.UnsupportedLanguageError{
		Code:   code,
		Reason: fmt.Sprintf("%q is not returned by the languages endpoint", code),
	}
}

func (t *AzureTranslator) do(req *http.Request, out interface{}) error {
	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Provider: ProviderAzure, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Provider: ProviderAzure, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return t.responseError(resp, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf(
			"failed to parse response: %w (response: %s)",
			err,
			truncateString(string(data), 200),
		)
	}
	return nil
}

func (t *AzureTranslator) responseError(resp *http.Response, data []byte) error {
	var body azureErrorBody
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch body.Error.Code {
	case azureInvalidSource:
		return &language.UnsupportedLanguageError{Code: t.options.InputLanguage, Reason: msg}
	case azureInvalidTarget:
		return &language.UnsupportedLanguageError{Code: t.options.TargetLanguage, Reason: msg}
	}
	return statusError(ProviderAzure, resp.StatusCode, body.Error.Code, msg, resp.Header)
}

func (t *AzureTranslator) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
