package model

import (
	"encoding/json"
	"time"
)

// RequestStatus enum constants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusNeedInfo = "need_info"
)

// PaymentStatus enum constants
const (
	PaymentPending       = "pending"
	PaymentPaid          = "paid"
	PaymentPartiallyPaid = "partially_paid"
	PaymentOnHold        = "on_hold"
)

// Approval action constants
const (
	ApprovalActionApproved = "approved"
	ApprovalActionRejected = "rejected"
)

// ExtractionStatus enum constants (proforma/receipt AI extraction)
const (
	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionPartial = "partial"
	ExtractionFailed  = "failed"
)

// ValidationStatus enum constants (receipt vs purchase order)
const (
	ValidationPending     = "pending"
	ValidationValid       = "valid"
	ValidationDiscrepancy = "discrepancy"
	ValidationFailed      = "failed"
)

// PurchaseRequest is the central workflow entity as served by the procurement backend.
// The gateway never mutates it locally; every transition is performed upstream.
type PurchaseRequest struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Items             []RequestItem `json:"items"`
	TotalAmount       string        `json:"total_amount"` // decimal string, sum of item totals
	Status            string        `json:"status"`       // pending, approved, rejected, need_info
	PaymentStatus     string        `json:"payment_status,omitempty"`
	CreatedBy         string        `json:"created_by"`
	CreatedByUsername string        `json:"created_by_username,omitempty"`

	CurrentApprovalLevel int        `json:"current_approval_level"`
	Approvals            []Approval `json:"approvals"` // append-only audit trail

	// Clarification side-channel. Optional flags are pointers so an omitted field stays observable.
	ClarificationRequested *bool  `json:"clarification_requested,omitempty"`
	ClarificationMessage   string `json:"clarification_message,omitempty"`
	ClarificationResponse  string `json:"clarification_response,omitempty"`

	// Receipt / payment evidence
	ReceiptRequired   *bool  `json:"receipt_required,omitempty"`
	ReceiptSubmitted  *bool  `json:"receipt_submitted,omitempty"`
	ProformaFile      string `json:"proforma_file,omitempty"`
	PurchaseOrderFile string `json:"purchase_order_file,omitempty"`
	ReceiptFile       string `json:"receipt_file,omitempty"`
	PaymentProof      string `json:"payment_proof,omitempty"`

	ProformaMetadata *ProformaMetadata `json:"proforma_metadata,omitempty"`
	ReceiptMetadata  *ReceiptMetadata  `json:"receipt_metadata,omitempty"`
	PurchaseOrder    *PurchaseOrder    `json:"purchase_order,omitempty"`

	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClarificationRequested reports the clarification flag; an absent flag means no clarification is open.
func (r PurchaseRequest) IsClarificationRequested() bool {
	return r.ClarificationRequested != nil && *r.ClarificationRequested
}

// IsCreatedBy reports whether userID owns the request.
func (r PurchaseRequest) IsCreatedBy(userID string) bool {
	return userID != "" && r.CreatedBy == userID
}

// RequestItem is one ordered line of a purchase request.
type RequestItem struct {
	ID          json.Number `json:"id,omitempty"` // backend assigns integer ids
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	UnitPrice   string      `json:"unit_price"`
	TotalPrice  string      `json:"total_price"`
}

// Approval is a single approver decision at a given level.
type Approval struct {
	ID              string    `json:"id"`
	Level           int       `json:"level"`
	Action          string    `json:"action"` // approved, rejected
	Comment         string    `json:"comment"`
	Approver        string    `json:"approver,omitempty"`
	ApproverDetails *User     `json:"approver_details,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ApproverID returns the approver identity, preferring the flat id over the nested profile.
func (a Approval) ApproverID() string {
	if a.Approver != "" {
		return a.Approver
	}
	if a.ApproverDetails != nil {
		return a.ApproverDetails.ID
	}
	return ""
}

// LineItem is an extracted or generated document line (proforma, receipt, purchase order).
// Quantity is an Amount because extracted quantities may be fractional.
type LineItem struct {
	Description string `json:"description"`
	Quantity    Amount `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	TotalPrice  Amount `json:"total_price,omitempty"`
}

// Discrepancy is one backend-detected difference between a receipt and its purchase order.
type Discrepancy struct {
	Type     string `json:"type"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ProformaMetadata holds AI-extracted fields of the vendor quote.
type ProformaMetadata struct {
	ID               string     `json:"id"`
	VendorName       string     `json:"vendor_name"`
	VendorAddress    string     `json:"vendor_address"`
	TotalAmount      Amount     `json:"total_amount,omitempty"`
	Currency         string     `json:"currency"`
	PaymentTerms     string     `json:"payment_terms,omitempty"`
	Items            []LineItem `json:"items,omitempty"`
	ExtractionStatus string     `json:"extraction_status"`
	ConfidenceScore  *float64   `json:"confidence_score,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// ReceiptMetadata holds AI-extracted fields of the submitted receipt and its validation result.
type ReceiptMetadata struct {
	ID               string        `json:"id"`
	VendorName       string        `json:"vendor_name"`
	TotalAmount      Amount        `json:"total_amount,omitempty"`
	Currency         string        `json:"currency"`
	Items            []LineItem    `json:"items"`
	ExtractionStatus string        `json:"extraction_status,omitempty"`
	ValidationStatus string        `json:"validation_status"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
	ConfidenceScore  *float64      `json:"confidence_score,omitempty"`
}

// PurchaseOrder is generated by the backend once a request is fully approved.
type PurchaseOrder struct {
	ID           string     `json:"id"`
	PONumber     string     `json:"po_number"`
	VendorName   string     `json:"vendor_name"`
	TotalAmount  Amount     `json:"total_amount"`
	Items        []LineItem `json:"items"`
	PODocument   string     `json:"po_document,omitempty"`
	RequestTitle string     `json:"request_title,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Bool returns a pointer to b, for building requests with explicit optional flags.
func Bool(b bool) *bool {
	return &b
}
