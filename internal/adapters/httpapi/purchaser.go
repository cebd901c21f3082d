package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
)

const (
	purchaseOperation      = "purchase"
	DefaultPurchaseTimeout = 30 * time.Second
)

var errPurchaseRejected = errors.New("purchase rejected")

type Purchaser struct {
	Endpoint        string
	FragmentCookies string
	Seed            string
	ShowSender      bool
	HTTPClient      *http.Client
	AttemptTimeout  time.Duration
	Retrier         Retrier
	Metrics         ports.Metrics
	Logger          zerolog.Logger
}

var _ ports.Purchaser = Purchaser{}

type purchaseRequest struct {
	Username        string `json:"username"`
	Amount          int    `json:"amount"`
	FragmentCookies string `json:"fragment_cookies"`
	Seed            string `json:"seed"`
	ShowSender      bool   `json:"show_sender"`
}

// Purchase succeeds only on HTTP 200 with success=true in the body. On
// exhaustion it returns a zero result and false.
func (p Purchaser) Purchase(ctx context.Context, username string, amount int) (domain.PurchaseResult, bool) {
	logger := p.Logger.With().
		Str("op", purchaseOperation).
		Str("recipient_fp", domain.FingerprintPrefix("@"+username)).
		Int("amount", amount).
		Logger()

	if err := validateEndpoint(p.Endpoint); err != nil {
		logger.Error().Err(err).Msg("purchase skipped")
		p.metrics().PurchaseCompleted(false)
		return domain.PurchaseResult{}, false
	}

	payload := purchaseRequest{
		Username:        username,
		Amount:          amount,
		FragmentCookies: p.FragmentCookies,
		Seed:            p.Seed,
		ShowSender:      p.ShowSender,
	}

	retrier := p.Retrier
	retrier.Logger = logger
	if retrier.Metrics == nil {
		retrier.Metrics = p.Metrics
	}

	var result domain.PurchaseResult
	err := retrier.Do(ctx, purchaseOperation, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout())
		defer cancel()

		resp, err := postJSON(attemptCtx, defaultClient(p.HTTPClient), p.Endpoint, payload, nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &statusError{Code: resp.StatusCode, Body: readSnippet(resp)}
		}

		var decoded domain.PurchaseResult
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
			return err
		}
		if !decoded.Success {
			if decoded.Message != "" {
				return errors.Join(errPurchaseRejected, errors.New(decoded.Message))
			}
			return errPurchaseRejected
		}

		result = decoded
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("purchase failed")
		p.metrics().PurchaseCompleted(false)
		return domain.PurchaseResult{}, false
	}

	p.metrics().PurchaseCompleted(true)
	logger.Info().Str("transaction_hash", result.TransactionHash).Msg("purchase completed")
	return result, true
}

func (p Purchaser) attemptTimeout() time.Duration {
	if p.AttemptTimeout > 0 {
		return p.AttemptTimeout
	}
	return DefaultPurchaseTimeout
}

func (p Purchaser) metrics() ports.Metrics {
	if p.Metrics != nil {
		return p.Metrics
	}
	return ports.NopMetrics{}
}
