// Package reconcile compares a purchase order against the items extracted from
// the submitted receipt.
package reconcile

import (
	"math"

	"procurement/internal/model"
	"procurement/internal/pricing"

	"github.com/shopspring/decimal"
)

// Outcome of comparing one position.
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeMissing  Outcome = "missing" // on the PO, not on the receipt
	OutcomeExtra    Outcome = "extra"   // on the receipt, not on the PO
)

// Tolerance is the largest amount difference still treated as equal.
var Tolerance = decimal.New(1, -2)

// ItemComparison is the result for one position.
type ItemComparison struct {
	Index   int             `json:"index"`
	PO      *model.LineItem `json:"po_item,omitempty"`
	Receipt *model.LineItem `json:"receipt_item,omitempty"`
	Outcome Outcome         `json:"outcome"`
}

// Report is the full PO versus receipt comparison.
type Report struct {
	PONumber          string              `json:"po_number"`
	POVendor          string              `json:"po_vendor"`
	ReceiptVendor     string              `json:"receipt_vendor"`
	POTotal           string              `json:"po_total"`
	ReceiptTotal      string              `json:"receipt_total"`
	VendorMismatch    bool                `json:"vendor_mismatch"`
	TotalMismatch     bool                `json:"total_mismatch"`
	ItemCountMismatch bool                `json:"item_count_mismatch"`
	Items             []ItemComparison    `json:"items"`
	Discrepancies     []model.Discrepancy `json:"discrepancies"`
	ValidationStatus  string              `json:"validation_status"`
	ConfidencePercent int                 `json:"confidence_percent"`
	HasIssues         bool                `json:"has_issues"`
}

// hasIssues reports whether any header field or position disagrees, or the
// backend recorded discrepancies of its own.
func hasIssues(r Report) bool {
	if r.VendorMismatch || r.TotalMismatch || r.ItemCountMismatch || len(r.Discrepancies) > 0 {
		return true
	}
	for _, item := range r.Items {
		if item.Outcome != OutcomeMatch {
			return true
		}
	}
	return false
}

// CompareItems pairs the two sequences by position. There is exactly one record
// per index up to the longer sequence. Items are not matched by description, so
// a reordered receipt shows as mismatches.
func CompareItems(po, receipt []model.LineItem) []ItemComparison {
	n := max(len(po), len(receipt))
	out := make([]ItemComparison, 0, n)
	for i := 0; i < n; i++ {
		c := ItemComparison{Index: i}
		if i < len(po) {
			c.PO = &po[i]
		}
		if i < len(receipt) {
			c.Receipt = &receipt[i]
		}
		switch {
		case c.Receipt == nil:
			c.Outcome = OutcomeMissing
		case c.PO == nil:
			c.Outcome = OutcomeExtra
		case itemsDiffer(*c.PO, *c.Receipt):
			c.Outcome = OutcomeMismatch
		default:
			c.Outcome = OutcomeMatch
		}
		out = append(out, c)
	}
	return out
}

func itemsDiffer(po, receipt model.LineItem) bool {
	if po.Description != receipt.Description {
		return true
	}
	if !pricing.ParseAmount(po.Quantity.String()).Equal(pricing.ParseAmount(receipt.Quantity.String())) {
		return true
	}
	return exceedsTolerance(po.UnitPrice.String(), receipt.UnitPrice.String())
}

// exceedsTolerance compares two amounts; empty or non-numeric counts as zero.
func exceedsTolerance(a, b string) bool {
	return pricing.ParseAmount(a).Sub(pricing.ParseAmount(b)).Abs().GreaterThan(Tolerance)
}

// Compare builds the report for a purchase order and the receipt extracted for it.
func Compare(po model.PurchaseOrder, receipt model.ReceiptMetadata) Report {
	discrepancies := receipt.Discrepancies
	if discrepancies == nil {
		discrepancies = []model.Discrepancy{}
	}
	report := Report{
		PONumber:          po.PONumber,
		POVendor:          po.VendorName,
		ReceiptVendor:     receipt.VendorName,
		POTotal:           po.TotalAmount.String(),
		ReceiptTotal:      receipt.TotalAmount.String(),
		VendorMismatch:    po.VendorName != receipt.VendorName,
		TotalMismatch:     exceedsTolerance(po.TotalAmount.String(), receipt.TotalAmount.String()),
		ItemCountMismatch: len(po.Items) != len(receipt.Items),
		Items:             CompareItems(po.Items, receipt.Items),
		Discrepancies:     discrepancies,
		ValidationStatus:  receipt.ValidationStatus,
		ConfidencePercent: confidencePercent(receipt.ConfidenceScore),
	}
	report.HasIssues = hasIssues(report)
	return report
}

func confidencePercent(score *float64) int {
	if score == nil {
		return 0
	}
	return int(math.Floor(*score*100 + 0.5))
}
