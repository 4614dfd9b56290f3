package loan

// FindDefaulters returns every account whose due date is on or before today,
// preserving input order.
func FindDefaulters(today Date, accounts []Account) []Account {
	defaulters := make([]Account, 0, len(accounts))
	for _, account := range accounts {
		if account.IsOverdue(today) {
			defaulters = append(defaulters, account)
		}
	}
	return defaulters
}
