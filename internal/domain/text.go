package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPaymentPhrase   = "оплатил покупку"
	DefaultQuantityPattern = `(\d+)\s*звезд`
	RecipientSigil         = "@"
)

var yoReplacer = strings.NewReplacer("ё", "е")

// Normalize lower-cases text with Russian casing rules and folds ё into е.
func Normalize(text string) string {
	lowered := cases.Lower(language.Russian).String(norm.NFC.String(text))
	return yoReplacer.Replace(lowered)
}

type Matcher struct {
	paymentPhrase string
	quantity      *regexp.Regexp
}

func NewMatcher(paymentPhrase, quantityPattern string) (*Matcher, error) {
	if strings.TrimSpace(paymentPhrase) == "" {
		paymentPhrase = DefaultPaymentPhrase
	}
	if strings.TrimSpace(quantityPattern) == "" {
		quantityPattern = DefaultQuantityPattern
	}

	re, err := regexp.Compile(quantityPattern)
	if err != nil {
		return nil, fmt.Errorf("compile quantity pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("quantity pattern %q needs a capture group", quantityPattern)
	}

	return &Matcher{paymentPhrase: Normalize(paymentPhrase), quantity: re}, nil
}

func MustNewMatcher(paymentPhrase, quantityPattern string) *Matcher {
	m, err := NewMatcher(paymentPhrase, quantityPattern)
	if err != nil {
		panic(err)
	}

	return m
}

// IsPaymentConfirmation expects already normalized text.
func (m *Matcher) IsPaymentConfirmation(normalized string) bool {
	return strings.Contains(normalized, m.paymentPhrase)
}

// Quantity expects already normalized text.
func (m *Matcher) Quantity(normalized string) (int, error) {
	match := m.quantity.FindStringSubmatch(normalized)
	if match == nil {
		return 0, ErrNoQuantity
	}

	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoQuantity, match[1])
	}

	return n, nil
}

// ParseRecipient strips the sigil from a raw recipient value.
func ParseRecipient(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, RecipientSigil) {
		return "", ErrMissingSigil
	}

	identifier := strings.TrimPrefix(trimmed, RecipientSigil)
	if identifier == "" {
		return "", ErrEmptyRecipient
	}

	return identifier, nil
}
