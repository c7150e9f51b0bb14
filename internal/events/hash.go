package events

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// ContentHash derives the canonical digest that identifies a documentation
// event across redeliveries. The digest covers the fields that define the
// real-world action; transport metadata (delivery IDs, signatures, receipt
// times) is deliberately excluded so retries from any integration collapse
// onto the same hash. Timestamps are normalized to UTC RFC3339 with second
// precision before hashing.
func ContentHash(kind enums.EventKind, occurredAt time.Time, actorAccountID, subjectRef string) string {
	canonical := strings.Join([]string{
		string(kind),
		occurredAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		strings.ToLower(strings.TrimSpace(actorAccountID)),
		strings.TrimSpace(subjectRef),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
