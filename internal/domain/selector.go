package domain

// Selector names an element role on a thread page. Adapters map roles to
// concrete CSS.
type Selector string

const (
	SelectorEvent            Selector = "event"
	SelectorRecipient        Selector = "recipient"
	SelectorOrderLink        Selector = "order_link"
	SelectorCompletedButton  Selector = "completed_button"
	SelectorConfirmCheckbox  Selector = "confirm_checkbox"
	SelectorSubmitButton     Selector = "submit_button"
	SelectorThreadLink       Selector = "thread_link"
	SelectorThreadBuyerLabel Selector = "thread_buyer_label"
)

func (s Selector) String() string {
	return string(s)
}
