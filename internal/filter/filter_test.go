package filter

import (
	"testing"

	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() []model.PurchaseRequest {
	return []model.PurchaseRequest{
		{ID: "1", Status: model.StatusPending, PaymentStatus: model.PaymentPending},
		{ID: "2", Status: model.StatusApproved, PaymentStatus: model.PaymentPending},
		{ID: "3", Status: model.StatusApproved, PaymentStatus: model.PaymentPaid,
			ReceiptRequired: model.Bool(true), ReceiptSubmitted: model.Bool(false)},
		{ID: "4", Status: model.StatusApproved, PaymentStatus: model.PaymentPaid,
			ReceiptRequired: model.Bool(true), ReceiptSubmitted: model.Bool(true)},
		{ID: "5", Status: model.StatusRejected,
			Approvals: []model.Approval{{Level: 1, Action: model.ApprovalActionRejected, Approver: "u-1"}}},
		{ID: "6", Status: model.StatusApproved, PaymentStatus: model.PaymentOnHold,
			Approvals: []model.Approval{{Level: 1, Action: model.ApprovalActionApproved, ApproverDetails: &model.User{ID: "u-1"}}}},
		{ID: "7", Status: model.StatusApproved, PaymentStatus: model.PaymentPaid},
	}
}

func ids(reqs []model.PurchaseRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}

func TestResolve_NamedFilters(t *testing.T) {
	tests := []struct {
		name     string
		view     string
		key      string
		value    string
		expected []string
	}{
		{name: "All Requests", view: ViewRequests, expected: []string{"1", "2", "3", "4", "5", "6", "7"}},
		{name: "Status Pending", view: ViewRequests, key: KeyStatus, value: model.StatusPending, expected: []string{"1"}},
		{name: "Status Approved", view: ViewRequests, key: KeyStatus, value: model.StatusApproved, expected: []string{"2", "3", "4", "6", "7"}},
		{name: "Status Rejected", view: ViewRequests, key: KeyStatus, value: model.StatusRejected, expected: []string{"5"}},
		{name: "Receipts Pending", view: ViewRequests, key: KeyReceiptsPending, value: "true", expected: []string{"3"}},
		{name: "Awaiting Review", view: ViewFinance, key: KeyAwaitingReview, expected: []string{"2"}},
		{name: "Paid", view: ViewFinance, key: KeyPaid, expected: []string{"3", "4", "7"}},
		{name: "On Hold", view: ViewFinance, key: KeyOnHold, expected: []string{"6"}},
		{name: "Missing Receipts", view: ViewFinance, key: KeyMissingReceipts, expected: []string{"3"}},
		{name: "Waiting For My Approval", view: ViewApprovals, key: KeyWaitingForMyApproval, expected: []string{"1"}},
		{name: "Approved By Me", view: ViewApprovalHistory, key: KeyApprovedByMe, expected: []string{"6"}},
		{name: "Rejected By Me", view: ViewApprovalHistory, key: KeyRejectedByMe, expected: []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.view, tt.key, tt.value, "u-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(Apply(snapshot(), p)))
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	cases := [][3]string{
		{"nope", "", ""},
		{ViewRequests, "nope", ""},
		{ViewRequests, KeyStatus, "archived"},
		{ViewFinance, KeyStatus, model.StatusPending},
		{ViewApprovals, KeyPaid, ""},
	}
	for _, c := range cases {
		_, err := Resolve(c[0], c[1], c[2], "u-1")
		assert.ErrorIs(t, err, ErrUnknownFilter, "%v", c)
	}
}

func TestDecidedBy_OtherViewerSeesNothing(t *testing.T) {
	p, err := Resolve(ViewApprovalHistory, KeyApprovedByMe, "", "u-2")
	require.NoError(t, err)
	assert.Empty(t, Apply(snapshot(), p))

	p, err = Resolve(ViewApprovalHistory, KeyRejectedByMe, "", "")
	require.NoError(t, err)
	assert.Empty(t, Apply(snapshot(), p))
}

func TestComposition_EitherOrderEqualsConjunction(t *testing.T) {
	reqs := snapshot()
	approved := Status(model.StatusApproved)
	paid := PaymentStatus(model.PaymentPaid)

	statusFirst := Apply(Apply(reqs, approved), paid)
	paymentFirst := Apply(Apply(reqs, paid), approved)
	conjunction := Apply(reqs, And(approved, paid))

	assert.Equal(t, []string{"3", "4", "7"}, ids(conjunction))
	assert.Equal(t, ids(conjunction), ids(statusFirst))
	assert.Equal(t, ids(conjunction), ids(paymentFirst))
}

func TestAbsentFieldsNeverMatch(t *testing.T) {
	empty := model.PurchaseRequest{ID: "x"}

	assert.False(t, Status(model.StatusPending)(empty))
	assert.False(t, PaymentStatus(model.PaymentPaid)(empty))
	assert.False(t, ReceiptsPending(empty))
	assert.False(t, AwaitingReview(empty))
	assert.False(t, DecidedBy("u-1", model.ApprovalActionApproved)(empty))

	paidNoFlags := model.PurchaseRequest{ID: "y", Status: model.StatusApproved, PaymentStatus: model.PaymentPaid}
	assert.False(t, ReceiptsPending(paidNoFlags))
}

func TestApply_KeepsOrderAndDoesNotAlias(t *testing.T) {
	reqs := snapshot()
	out := Apply(reqs, All)
	require.Len(t, out, len(reqs))

	out[0].ID = "changed"
	assert.Equal(t, "1", reqs[0].ID)
}
