package browser

import (
	"fmt"

	"github.com/bnema/stars-relay/internal/domain"
)

// Locator finds an element by CSS, optionally narrowed to elements whose
// text matches Text.
type Locator struct {
	CSS  string `mapstructure:"css" toml:"css" json:"css"`
	Text string `mapstructure:"text" toml:"text,omitempty" json:"text,omitempty"`
}

type Selectors map[domain.Selector]Locator

func DefaultSelectors() Selectors {
	return Selectors{
		domain.SelectorEvent:            {CSS: "span.MuiTypography-root.MuiTypography-14.mui-style-hkwtqx"},
		domain.SelectorRecipient:        {CSS: ".MuiTypography-root.MuiTypography-16.mmui-style-1g3e91c"},
		domain.SelectorOrderLink:        {CSS: "a.MuiTypography-root.MuiTypography-inherit.MuiLink-root.MuiLink-underlineAlways.mmui-style-hlanhi"},
		domain.SelectorCompletedButton:  {CSS: "button", Text: "Я выполнил"},
		domain.SelectorConfirmCheckbox:  {CSS: "label.MMuiBox-root.mmui-style-70qvj9 input[name='confirmed']"},
		domain.SelectorSubmitButton:     {CSS: "button.MMUiBox-root.mmui-style-driib9[type='submit']"},
		domain.SelectorThreadLink:       {CSS: "a[href^='/chats/']"},
		domain.SelectorThreadBuyerLabel: {CSS: "span.MMuiTypography-root.MMuiTypography-16"},
	}
}

// Merge overlays non-empty overrides on top of s.
func (s Selectors) Merge(overrides Selectors) Selectors {
	merged := make(Selectors, len(s)+len(overrides))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range overrides {
		if v.CSS == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}

func (s Selectors) lookup(selector domain.Selector) (Locator, error) {
	loc, ok := s[selector]
	if !ok || loc.CSS == "" {
		return Locator{}, fmt.Errorf("no locator for selector %q", selector)
	}
	return loc, nil
}
