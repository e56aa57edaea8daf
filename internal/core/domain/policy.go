package domain

// Capability is a coarse action class checked at the HTTP boundary. Every
// protected route declares exactly one capability, and Allows is the single
// place role grants are defined.
type Capability string

const (
	// CapabilityManageCatalog covers creating and editing restaurants,
	// deals and vouchers.
	CapabilityManageCatalog Capability = "manage_catalog"
	// CapabilityRedeem covers using deals and purchasing vouchers.
	CapabilityRedeem Capability = "redeem"
	// CapabilityWallet covers reading and topping up the caller's wallet.
	CapabilityWallet Capability = "wallet"
)

// Allows reports whether the role is granted the capability.
// Admins hold every capability; merchants manage their catalog and have a
// wallet; customers redeem and have a wallet.
func Allows(role Role, cap Capability) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMerchant:
		return cap == CapabilityManageCatalog || cap == CapabilityWallet
	case RoleCustomer:
		return cap == CapabilityRedeem || cap == CapabilityWallet
	}
	return false
}
