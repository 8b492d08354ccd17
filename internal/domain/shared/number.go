package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateDocumentNumber returns a human-readable document number such as
// PO-20240131-1A2B3C.
func GenerateDocumentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return prefix + "-" + at.Format("20060102") + "-" + suffix
}
