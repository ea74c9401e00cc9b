package domain

import "time"

// IsOverdue is purely date based: a sent invoice is overdue from the day after its due date.
// An invoice already stamped overdue stays overdue until paid or cancelled.
func IsOverdue(status InvoiceStatus, dueDate, now time.Time) bool {
	if status != InvoiceSent && status != InvoiceOverdue {
		return false
	}
	return afterDate(now, dueDate)
}

// ReminderEligible reports whether a reminder may go out now given the cooldown.
func ReminderEligible(inv *Invoice, now time.Time, cooldown time.Duration) bool {
	if !IsOverdue(inv.Status, inv.DueDate, now) {
		return false
	}
	if inv.ReminderSentAt == nil {
		return true
	}
	return now.Sub(*inv.ReminderSentAt) > cooldown
}
