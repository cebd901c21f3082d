package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	sendMessageOperation  = "sendMessage"
	DefaultRequestTimeout = 30 * time.Second
	// DefaultSendMessageHash is the persisted-query hash the chat site uses
	// for its sendMessage mutation.
	DefaultSendMessageHash = "b71a34633625588062280264b85b8c70495b0a7a901449343a851989c109f406"
)

type Messenger struct {
	Endpoint       string
	QueryHash      string
	Cookies        []domain.Cookie
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Limiter        *rate.Limiter
	Retrier        Retrier
	Metrics        ports.Metrics
	Logger         zerolog.Logger
}

var _ ports.Messenger = Messenger{}

type sendMessageRequest struct {
	OperationName string               `json:"operationName"`
	Variables     sendMessageVariables `json:"variables"`
	Extensions    requestExtensions    `json:"extensions"`
}

type sendMessageVariables struct {
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
	Markdown bool   `json:"markdown"`
}

type requestExtensions struct {
	PersistedQuery persistedQuery `json:"persistedQuery"`
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

// SendMessage reports whether the chat API accepted the message. Failures are
// logged, never returned.
func (m Messenger) SendMessage(ctx context.Context, receiver domain.BuyerID, text string) bool {
	logger := m.Logger.With().Str("op", sendMessageOperation).Str("buyer", string(receiver)).Logger()

	if err := validateEndpoint(m.Endpoint); err != nil {
		logger.Error().Err(err).Msg("send message skipped")
		m.metrics().MessageSent(false)
		return false
	}

	if m.Limiter != nil {
		if err := m.Limiter.Wait(ctx); err != nil {
			logger.Error().Err(err).Msg("send message rate limiter")
			m.metrics().MessageSent(false)
			return false
		}
	}

	hash := m.QueryHash
	if hash == "" {
		hash = DefaultSendMessageHash
	}
	payload := sendMessageRequest{
		OperationName: sendMessageOperation,
		Variables:     sendMessageVariables{Receiver: string(receiver), Text: text, Markdown: false},
		Extensions:    requestExtensions{PersistedQuery: persistedQuery{Version: 1, SHA256Hash: hash}},
	}

	header := http.Header{}
	if cookie := cookieHeader(m.Cookies); cookie != "" {
		header.Set("Cookie", cookie)
	}

	retrier := m.Retrier
	retrier.Logger = logger
	if retrier.Metrics == nil {
		retrier.Metrics = m.Metrics
	}

	err := retrier.Do(ctx, sendMessageOperation, func(ctx context.Context) error {
		reqCtx, cancel := m.requestContext(ctx)
		defer cancel()

		resp, err := postJSON(reqCtx, defaultClient(m.HTTPClient), m.Endpoint, payload, header)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &statusError{Code: resp.StatusCode, Body: readSnippet(resp)}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("send message failed")
		m.metrics().MessageSent(false)
		return false
	}

	m.metrics().MessageSent(true)
	return true
}

func (m Messenger) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := m.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (m Messenger) metrics() ports.Metrics {
	if m.Metrics != nil {
		return m.Metrics
	}
	return ports.NopMetrics{}
}
