package domain

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"
)

var invoiceNow = time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

func draftInvoice(t *testing.T) *Invoice {
	t.Helper()
	items := []LineItem{
		{ID: "l1", Kind: ItemKindLabor, Quantity: dec("4"), UnitPrice: dec("650")},
		{ID: "s1", Kind: ItemKindService, Quantity: dec("1"), UnitPrice: dec("450")},
	}
	pricing := Pricing{DiscountPercent: dec("0"), VATRate: dec("25"), Deduction: DeductionRUT}
	inv, err := NewInvoice("inv-1", "biz-1", "cust-1", items, pricing, DeductionDetails{PersonalNumber: "19800101-1234"}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), invoiceNow)
	if err != nil {
		t.Fatalf("NewInvoice() error = %v", err)
	}
	return inv
}

func sentInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv := draftInvoice(t)
	if err := inv.Send(invoiceNow); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	return inv
}

func payment() Payment {
	return Payment{PaidAt: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC), Amount: dec("2812.50"), Method: PaymentSwish}
}

func TestInvoiceFromQuoteRequiresAcceptedQuote(t *testing.T) {
	q := quoteIn(t, QuoteSent)
	if _, err := InvoiceFromQuote("inv-9", q, quoteNow.AddDate(0, 0, 30), quoteNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	q = quoteIn(t, QuoteAccepted)
	inv, err := InvoiceFromQuote("inv-9", q, quoteNow.AddDate(0, 0, 30), quoteNow)
	if err != nil {
		t.Fatalf("InvoiceFromQuote() error = %v", err)
	}
	if inv.QuoteID != q.ID || inv.Status != InvoiceDraft {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if !reflect.DeepEqual(inv.Items, q.Items) || !reflect.DeepEqual(inv.Pricing, q.Pricing) || inv.Deduction != q.Deduction {
		t.Fatalf("invoice content does not match quote")
	}

	inv.Items[0].Description = "changed"
	if q.Items[0].Description == "changed" {
		t.Fatalf("invoice items share storage with the quote")
	}
}

type invoiceOutcome struct {
	status InvoiceStatus
	kind   error
}

func invoiceIn(t *testing.T, status InvoiceStatus, late time.Time) *Invoice {
	t.Helper()
	if status == InvoiceDraft {
		return draftInvoice(t)
	}
	inv := sentInvoice(t)
	var err error
	switch status {
	case InvoiceOverdue:
		err = inv.MarkOverdue(late)
	case InvoicePaid:
		err = inv.MarkPaid(payment(), payment().PaidAt)
	case InvoiceCancelled:
		err = inv.Cancel(invoiceNow)
	}
	if err != nil {
		t.Fatalf("move invoice to %s: %v", status, err)
	}
	return inv
}

func TestInvoiceTransitionsStayInsideLifecycle(t *testing.T) {
	// after the due date, so overdue stamping and reminders are possible
	late := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	ok := func(s InvoiceStatus) invoiceOutcome { return invoiceOutcome{status: s} }
	fail := func(s InvoiceStatus) invoiceOutcome { return invoiceOutcome{status: s, kind: ErrInvalidTransition} }

	want := map[InvoiceStatus]map[string]invoiceOutcome{
		InvoiceDraft: {
			"send": ok(InvoiceSent), "pay": fail(InvoiceDraft), "repay": fail(InvoiceDraft),
			"overdue": fail(InvoiceDraft), "cancel": ok(InvoiceCancelled),
			"replace": ok(InvoiceDraft), "remind": fail(InvoiceDraft),
		},
		InvoiceSent: {
			"send": ok(InvoiceSent), "pay": ok(InvoicePaid), "repay": ok(InvoicePaid),
			"overdue": ok(InvoiceOverdue), "cancel": ok(InvoiceCancelled),
			"replace": fail(InvoiceSent), "remind": ok(InvoiceSent),
		},
		InvoiceOverdue: {
			"send": ok(InvoiceOverdue), "pay": ok(InvoicePaid), "repay": ok(InvoicePaid),
			"overdue": ok(InvoiceOverdue), "cancel": fail(InvoiceOverdue),
			"replace": fail(InvoiceOverdue), "remind": ok(InvoiceOverdue),
		},
		InvoicePaid: {
			"send": fail(InvoicePaid), "pay": ok(InvoicePaid), "repay": fail(InvoicePaid),
			"overdue": fail(InvoicePaid), "cancel": fail(InvoicePaid),
			"replace": fail(InvoicePaid), "remind": fail(InvoicePaid),
		},
		InvoiceCancelled: {
			"send": fail(InvoiceCancelled), "pay": fail(InvoiceCancelled), "repay": fail(InvoiceCancelled),
			"overdue": fail(InvoiceCancelled), "cancel": ok(InvoiceCancelled),
			"replace": fail(InvoiceCancelled), "remind": fail(InvoiceCancelled),
		},
	}
	operations := map[string]func(inv *Invoice) error{
		"send": func(inv *Invoice) error { return inv.Send(late) },
		"pay":  func(inv *Invoice) error { return inv.MarkPaid(payment(), late) },
		"repay": func(inv *Invoice) error {
			return inv.MarkPaid(Payment{PaidAt: payment().PaidAt, Amount: dec("100"), Method: PaymentCash}, late)
		},
		"overdue": func(inv *Invoice) error { return inv.MarkOverdue(late) },
		"cancel":  func(inv *Invoice) error { return inv.Cancel(late) },
		"replace": func(inv *Invoice) error { return inv.ReplaceItems(inv.Items, inv.Pricing, late) },
		"remind":  func(inv *Invoice) error { return inv.RecordReminder(late, 7*24*time.Hour) },
	}

	for from, outcomes := range want {
		if len(outcomes) != len(operations) {
			t.Fatalf("%s: table covers %d of %d operations", from, len(outcomes), len(operations))
		}
		for name, expected := range outcomes {
			inv := invoiceIn(t, from, late)
			before := inv.Clone()
			beforeJSON := mustJSON(t, inv)
			err := operations[name](inv)

			if expected.kind == nil && err != nil {
				t.Fatalf("%s from %s: unexpected error %v", name, from, err)
			}
			if expected.kind != nil && !errors.Is(err, expected.kind) {
				t.Fatalf("%s from %s: expected %v, got %v", name, from, expected.kind, err)
			}
			if inv.Status != expected.status {
				t.Fatalf("%s from %s reached %s, want %s", name, from, inv.Status, expected.status)
			}
			if err != nil {
				if !reflect.DeepEqual(before, inv) || !bytes.Equal(beforeJSON, mustJSON(t, inv)) {
					t.Fatalf("%s from %s failed with %v but mutated the invoice", name, from, err)
				}
			}
		}
	}
}

func TestInvoiceSendIsIdempotent(t *testing.T) {
	inv := sentInvoice(t)
	sentAt := *inv.SentAt
	if err := inv.Send(invoiceNow.Add(time.Hour)); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	if !inv.SentAt.Equal(sentAt) {
		t.Fatalf("expected sentAt kept, got %s", inv.SentAt)
	}
}

func TestInvoiceMarkPaid(t *testing.T) {
	inv := sentInvoice(t)
	p := payment()
	if err := inv.MarkPaid(p, p.PaidAt); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if inv.Status != InvoicePaid || !inv.PaidAt.Equal(p.PaidAt) || inv.PaymentMethod != PaymentSwish {
		t.Fatalf("unexpected paid invoice %+v", inv)
	}
	if !inv.PaidAmount.Valid || !inv.PaidAmount.Decimal.Equal(p.Amount) {
		t.Fatalf("expected paid amount %s, got %+v", p.Amount, inv.PaidAmount)
	}

	if err := inv.MarkPaid(p, p.PaidAt.Add(time.Hour)); err != nil {
		t.Fatalf("repeating the same payment should be a no-op, got %v", err)
	}

	other := p
	other.Amount = dec("100")
	if err := inv.MarkPaid(other, p.PaidAt); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for a different payment, got %v", err)
	}
}

func TestInvoiceMarkPaidValidation(t *testing.T) {
	cases := map[string]func(p *Payment){
		"missing date":   func(p *Payment) { p.PaidAt = time.Time{} },
		"zero amount":    func(p *Payment) { p.Amount = dec("0") },
		"unknown method": func(p *Payment) { p.Method = "cheque" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			inv := sentInvoice(t)
			p := payment()
			mutate(&p)
			if err := inv.MarkPaid(p, invoiceNow); !errors.Is(err, ErrMissingRequiredField) {
				t.Fatalf("expected ErrMissingRequiredField, got %v", err)
			}
			if inv.Status != InvoiceSent {
				t.Fatalf("expected sent, got %s", inv.Status)
			}
		})
	}

	draft := draftInvoice(t)
	if err := draft.MarkPaid(payment(), invoiceNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from draft, got %v", err)
	}
}

func TestInvoiceCancel(t *testing.T) {
	inv := draftInvoice(t)
	if err := inv.Cancel(invoiceNow); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := inv.Cancel(invoiceNow.Add(time.Hour)); err != nil {
		t.Fatalf("second Cancel() error = %v", err)
	}
	if !inv.CancelledAt.Equal(invoiceNow) {
		t.Fatalf("expected cancelledAt kept, got %s", inv.CancelledAt)
	}
	if err := inv.Send(invoiceNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelled invoice must not be sent, got %v", err)
	}

	paid := sentInvoice(t)
	if err := paid.MarkPaid(payment(), invoiceNow); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if err := paid.Cancel(invoiceNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition cancelling a paid invoice, got %v", err)
	}
}

func TestInvoiceMarkOverdue(t *testing.T) {
	inv := sentInvoice(t)
	if err := inv.MarkOverdue(inv.DueDate); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("due date itself is not overdue, got %v", err)
	}

	late := inv.DueDate.AddDate(0, 0, 1)
	if err := inv.MarkOverdue(late); err != nil {
		t.Fatalf("MarkOverdue() error = %v", err)
	}
	if inv.Status != InvoiceOverdue {
		t.Fatalf("expected overdue, got %s", inv.Status)
	}
	if err := inv.MarkOverdue(late); err != nil {
		t.Fatalf("second MarkOverdue() error = %v", err)
	}
	if err := inv.Send(late); err != nil {
		t.Fatalf("Send() on overdue should be a no-op, got %v", err)
	}
	if err := inv.MarkPaid(payment(), late); err != nil {
		t.Fatalf("overdue invoice should accept payment, got %v", err)
	}
}

func TestInvoiceEffectiveStatus(t *testing.T) {
	inv := sentInvoice(t)
	if got := inv.EffectiveStatus(inv.DueDate); got != InvoiceSent {
		t.Fatalf("expected sent on due date, got %s", got)
	}
	if got := inv.EffectiveStatus(inv.DueDate.AddDate(0, 0, 1)); got != InvoiceOverdue {
		t.Fatalf("expected overdue after due date, got %s", got)
	}
	if inv.Status != InvoiceSent {
		t.Fatalf("effective status must not mutate the invoice")
	}
}

func TestAttachExternalRef(t *testing.T) {
	inv := sentInvoice(t)
	if err := inv.AttachExternalRef("ledger/biz-1/inv-1.xlsx", invoiceNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before payment, got %v", err)
	}
	if err := inv.MarkPaid(payment(), invoiceNow); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if err := inv.AttachExternalRef("ledger/biz-1/inv-1.xlsx", invoiceNow); err != nil {
		t.Fatalf("AttachExternalRef() error = %v", err)
	}
	if inv.ExternalRef != "ledger/biz-1/inv-1.xlsx" {
		t.Fatalf("unexpected external ref %q", inv.ExternalRef)
	}
}

func TestNewLedgerEntry(t *testing.T) {
	inv := sentInvoice(t)
	if _, err := NewLedgerEntry(inv); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for unpaid invoice, got %v", err)
	}
	if err := inv.MarkPaid(payment(), invoiceNow); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}

	entry, err := NewLedgerEntry(inv)
	if err != nil {
		t.Fatalf("NewLedgerEntry() error = %v", err)
	}
	// 4*650 labor + 450 service = 3050, vat 762.50, total 3812.50, rut 1300.
	if !entry.Totals.Total.Equal(dec("3813")) {
		t.Fatalf("expected rounded total 3813, got %s", entry.Totals.Total)
	}
	if !entry.Totals.DeductionAmount.Equal(dec("1300")) {
		t.Fatalf("expected deduction 1300, got %s", entry.Totals.DeductionAmount)
	}
	if !entry.PaidAmount.Equal(dec("2813")) {
		t.Fatalf("expected paid amount 2813, got %s", entry.PaidAmount)
	}
	if entry.PersonalNumber != "19800101-1234" || entry.Deduction != DeductionRUT {
		t.Fatalf("unexpected deduction fields %+v", entry)
	}
}
