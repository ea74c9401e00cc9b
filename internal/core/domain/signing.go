package domain

import "time"

// SigningToken grants possession-based access to one quote. Tokens are never
// deleted; consumed and superseded tokens stay for audit.
type SigningToken struct {
	Token        string     `json:"-"`
	QuoteID      string     `json:"quote_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

func NewSigningToken(token, quoteID string, now time.Time, ttl time.Duration) SigningToken {
	return SigningToken{
		Token:     token,
		QuoteID:   quoteID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (t SigningToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// CheckWritable reports whether the token may still be used to sign or decline.
// A token replaced by a newer one reads as expired.
func (t SigningToken) CheckWritable(now time.Time) error {
	if t.ConsumedAt != nil {
		return kindf(ErrTokenAlreadyConsumed, "check token", "token for quote %s was used at %s", t.QuoteID, t.ConsumedAt.Format(time.RFC3339))
	}
	if t.SupersededAt != nil {
		return kindf(ErrTokenExpired, "check token", "token for quote %s was replaced at %s", t.QuoteID, t.SupersededAt.Format(time.RFC3339))
	}
	if t.IsExpired(now) {
		return kindf(ErrTokenExpired, "check token", "token for quote %s expired at %s", t.QuoteID, t.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// QuoteView is what the customer-facing signing page and renderers read.
type QuoteView struct {
	Quote         *Quote     `json:"quote"`
	Totals        Totals     `json:"totals"`
	Rounded       Totals     `json:"rounded"`
	AlreadySigned bool       `json:"already_signed"`
	SignerName    string     `json:"signer_name,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
}

func NewQuoteView(q *Quote) (*QuoteView, error) {
	totals, err := q.Totals()
	if err != nil {
		return nil, err
	}
	view := &QuoteView{
		Quote:   q,
		Totals:  totals,
		Rounded: totals.Rounded(),
	}
	if q.Status == QuoteAccepted {
		view.AlreadySigned = true
		view.SignerName = q.SignerName
		view.SignedAt = cloneTime(q.SignedAt)
	}
	return view, nil
}

type InvoiceView struct {
	Invoice          *Invoice      `json:"invoice"`
	EffectiveStatus  InvoiceStatus `json:"effective_status"`
	Overdue          bool          `json:"overdue"`
	ReminderEligible bool          `json:"reminder_eligible"`
	Totals           Totals        `json:"totals"`
	Rounded          Totals        `json:"rounded"`
}

func NewInvoiceView(inv *Invoice, now time.Time, cooldown time.Duration) (*InvoiceView, error) {
	totals, err := inv.Totals()
	if err != nil {
		return nil, err
	}
	return &InvoiceView{
		Invoice:          inv,
		EffectiveStatus:  inv.EffectiveStatus(now),
		Overdue:          IsOverdue(inv.Status, inv.DueDate, now),
		ReminderEligible: ReminderEligible(inv, now, cooldown),
		Totals:           totals,
		Rounded:          totals.Rounded(),
	}, nil
}

// SigningLink is handed to the business once; the token is not readable afterwards.
type SigningLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SentQuote is the result of sending a quote. Link is nil when the quote was already sent.
type SentQuote struct {
	View *QuoteView   `json:"quote"`
	Link *SigningLink `json:"link,omitempty"`
}
