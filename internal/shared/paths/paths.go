package paths

import (
	"fmt"
	"path/filepath"
)

// Storage subdirectories relative to the data root
const (
	// Profiles contains one isolated partition per account
	Profiles = "profiles"

	// Backups contains gzip archives produced before session resets
	Backups = "backups"

	// Accounts is the account configuration file name
	Accounts = "accounts.toml"
)

// PartitionKey derives the deterministic storage partition key for an
// account. Two different account ids never map to the same key.
func PartitionKey(accountID string) string {
	return "account_" + accountID
}

// ProfileDir returns the per-account storage directory
func ProfileDir(root, accountID string) string {
	return filepath.Join(root, Profiles, PartitionKey(accountID))
}

// CookieFile returns the persisted cookie store for an account
func CookieFile(root, accountID string) string {
	return filepath.Join(ProfileDir(root, accountID), "cookies.json")
}

// BackupDir returns the directory holding session backups
func BackupDir(root string) string {
	return filepath.Join(root, Backups)
}

// BackupFile returns a timestamped archive path for an account backup
func BackupFile(root, accountID, stamp string) string {
	return filepath.Join(BackupDir(root), fmt.Sprintf("%s-%s.tar.gz", PartitionKey(accountID), stamp))
}

// AccountsFile returns the account configuration store path
func AccountsFile(root string) string {
	return filepath.Join(root, Accounts)
}

// ValidateAccountID checks that an account id is safe for path
// construction (no traversal, no absolute paths).
func ValidateAccountID(accountID string) error {
	if accountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if filepath.IsAbs(accountID) {
		return fmt.Errorf("account id cannot be an absolute path")
	}
	if filepath.Clean(accountID) != accountID {
		return fmt.Errorf("account id contains invalid path components")
	}
	return nil
}
