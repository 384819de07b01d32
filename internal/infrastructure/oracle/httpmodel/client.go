package httpmodel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/resilience"
)

// Client talks to a transliteration model served over HTTP. It implements
// ports.Oracle.
type Client struct {
	baseURL    string
	beamSize   int
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, beamSize int) *Client {
	return NewWithOptions(baseURL, beamSize, Options{})
}

func NewWithOptions(baseURL string, beamSize int, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if beamSize <= 0 {
		beamSize = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		beamSize:   beamSize,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type translateRequest struct {
	Src      []string `json:"src"`
	BeamSize int      `json:"beam_size"`
}

type translateResponse struct {
	Translations []string  `json:"translations"`
	Scores       []float64 `json:"scores"`
}

// Translate returns beamSize candidates per source word, flattened in input
// order.
func (c *Client) Translate(ctx context.Context, batch []string) ([]string, []float64, error) {
	if len(batch) == 0 {
		return nil, nil, nil
	}

	request := translateRequest{Src: batch, BeamSize: c.beamSize}
	response, err := resilience.Do(ctx, c.executor, "oracle.translate", func(callCtx context.Context) (translateResponse, error) {
		var out translateResponse
		if err := c.postJSON(callCtx, "/translate", request, &out, "translate"); err != nil {
			return translateResponse{}, err
		}
		return out, nil
	}, classifyOracleError)
	if err != nil {
		return nil, nil, toDomainError("oracle translate", err)
	}

	if len(response.Translations) != len(response.Scores) {
		return nil, nil, domain.WrapError(
			domain.ErrLatticeShape,
			"oracle translate",
			fmt.Errorf("translations/scores mismatch: %d/%d", len(response.Translations), len(response.Scores)),
		)
	}
	return response.Translations, response.Scores, nil
}

// Ping checks that the model server answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return toDomainError("oracle health", fmt.Errorf("oracle health request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return toDomainError("oracle health", newHTTPStatusError("health", resp))
	}
	return nil
}
