package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContentID hashes a report marker (e.g. a sub-table's "Start/End" line) into a stable id.
// md5 hex keeps ids compatible with rows already stored by earlier imports.
func ContentID(marker string) string {
	sum := md5.Sum([]byte(marker))
	return hex.EncodeToString(sum[:])
}

// TransferID derives the shared id of both legs of a transfer.
func TransferID(from, to string, amount decimal.Decimal, date time.Time) string {
	return ContentID(fmt.Sprintf("%s|%s|%s|%s", from, to, amount.StringFixed(2), date.Format("2006-01-02")))
}

// Digest returns the sha256 hex of a file's bytes.
func Digest(data []byte) string {
	hash := sha256.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// Matcher compares file contents against the digest of a previous import.
type Matcher struct {
	expectedChecksum string
}

func NewMatcher(expectedChecksum string) *Matcher {
	return &Matcher{expectedChecksum: expectedChecksum}
}

// Match checks if data's digest matches the expected one.
func (m *Matcher) Match(data []byte) (bool, error) {
	if m.expectedChecksum == "" {
		return false, errors.New("expected checksum is not set")
	}
	return Digest(data) == m.expectedChecksum, nil
}
