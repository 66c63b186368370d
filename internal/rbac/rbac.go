package rbac

// Role constants
const (
	RoleCustomer   = "customer"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// Permission constants
const (
	PermPostJob          = "post_job"
	PermAcceptBid        = "accept_bid"
	PermCounterQuote     = "counter_quote"
	PermAcceptQuote      = "accept_quote"
	PermFundEscrow       = "fund_escrow"
	PermApproveMilestone = "approve_milestone"
	PermPlaceBid         = "place_bid"
	PermIssueQuote       = "issue_quote"
	PermRespondLead      = "respond_lead"
	PermSubmitEvidence   = "submit_evidence"
	PermManageCredits    = "manage_credits"
	PermResolveDispute   = "resolve_dispute"
	PermRefundEscrow     = "refund_escrow"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleCustomer: {
		PermPostJob, PermAcceptBid, PermCounterQuote, PermAcceptQuote,
		PermFundEscrow, PermApproveMilestone,
	},
	RoleContractor: {
		PermPlaceBid, PermIssueQuote, PermCounterQuote, PermAcceptQuote,
		PermRespondLead, PermSubmitEvidence, PermManageCredits,
	},
	RoleAdmin: {
		PermResolveDispute, PermRefundEscrow, PermManageCredits,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation reports whether the permission moves money.
func IsFinancialOperation(permission string) bool {
	switch permission {
	case PermFundEscrow, PermRefundEscrow, PermManageCredits:
		return true
	}
	return false
}
