package accounts

import "github.com/cleared-dev/ledgerimport/internal/model"

// suspensePreference lists clearing account names in order of preference.
var suspensePreference = []string{model.SuspenseClearing, model.SuspenseAccount}

// DefaultSuspense picks the clearing account for an import: Suspense Clearing,
// else Suspense Account, else the first postable account.
func (s *Service) DefaultSuspense() (string, bool) {
	for _, name := range suspensePreference {
		if s.Exists(name) {
			return name, true
		}
	}
	if postable := s.Postable(); len(postable) > 0 {
		return postable[0].Name, true
	}
	return "", false
}

// DefaultBank picks the first postable account typed Bank, if any.
func (s *Service) DefaultBank() (string, bool) {
	for _, a := range s.Postable() {
		if a.AccountType == "Bank" {
			return a.Name, true
		}
	}
	return "", false
}
