package memory

import "github.com/fobos-app/ledger/internal/repository"

func NewRepositories() repository.Repositories {
	return repository.Repositories{
		Accounts:   NewAccounts(),
		Entries:    NewEntries(),
		Categories: NewCategories(),
		AuditLogs:  NewAuditLogs(),
	}
}
