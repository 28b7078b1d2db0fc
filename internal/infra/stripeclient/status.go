package stripeclient

// IsLiveStatus maps a Stripe subscription status onto our single Active
// flag. Trialing counts as live; everything in the dunning/cancel family
// does not.
func IsLiveStatus(status string) bool {
	switch status {
	case "active", "trialing":
		return true
	default:
		return false
	}
}
