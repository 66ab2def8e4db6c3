package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderIDTimeLayout = "20060102150405"

// IDGenerator mints order ids.
type IDGenerator func(now time.Time, userID int64) string

// NewOrderID is the UTC second, the zero-padded user id and six random hex
// digits. Collisions are possible and surface as a primary key violation,
// which the coordinator answers by retrying with a fresh id.
func NewOrderID(now time.Time, userID int64) string {
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%09d%s", now.UTC().Format(orderIDTimeLayout), userID, entropy[:6])
}
