package application

import (
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultCheckInterval = 2 * time.Second
	DefaultSyncInterval  = 30 * time.Second
	DefaultTick          = time.Second
	DefaultMaxChats      = 20
	DefaultRecoverDelay  = 5 * time.Second
	DefaultRecipientPoll = time.Second
	DefaultClickTimeout  = 5 * time.Second
)

// Options holds the loop timings shared by the supervisor, its monitors and
// their fulfillers. Zero values fall back to the defaults above.
type Options struct {
	CheckInterval time.Duration
	SyncInterval  time.Duration
	Tick          time.Duration
	MaxChats      int
	RecoverDelay  time.Duration
	RecipientPoll time.Duration
	ClickTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		CheckInterval: DefaultCheckInterval,
		SyncInterval:  DefaultSyncInterval,
		Tick:          DefaultTick,
		MaxChats:      DefaultMaxChats,
		RecoverDelay:  DefaultRecoverDelay,
		RecipientPoll: DefaultRecipientPoll,
		ClickTimeout:  DefaultClickTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CheckInterval <= 0 {
		o.CheckInterval = d.CheckInterval
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = d.SyncInterval
	}
	if o.Tick <= 0 {
		o.Tick = d.Tick
	}
	if o.MaxChats <= 0 {
		o.MaxChats = d.MaxChats
	}
	if o.RecoverDelay <= 0 {
		o.RecoverDelay = d.RecoverDelay
	}
	if o.RecipientPoll <= 0 {
		o.RecipientPoll = d.RecipientPoll
	}
	if o.ClickTimeout <= 0 {
		o.ClickTimeout = d.ClickTimeout
	}
	return o
}

// Deps are the collaborators every monitor shares.
type Deps struct {
	Store     ports.StateStore
	Messenger ports.Messenger
	Purchaser ports.Purchaser
	Matcher   *domain.Matcher
	Clock     ports.Clock
	Metrics   ports.Metrics
	Logger    zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Matcher == nil {
		d.Matcher = domain.MustNewMatcher(domain.DefaultPaymentPhrase, domain.DefaultQuantityPattern)
	}
	if d.Clock == nil {
		d.Clock = ports.SystemClock{}
	}
	if d.Metrics == nil {
		d.Metrics = ports.NopMetrics{}
	}
	return d
}
