package planner

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tripsmith/tripsmith/travel"
)

// Seed derives the deterministic planning seed for an intent.
//
// The seed is the big-endian first 8 bytes of the SHA-256 digest over a
// canonical rendering of the intent fields that shape a plan:
//
//	city|window start (RFC 3339, UTC)|budget cents|sorted airports|kid friendly|sorted themes
//
// List fields are sorted so input ordering never changes the seed. Fields
// that do not shape planning (org, user, locked windows) are excluded.
func Seed(intent travel.Intent) uint64 {
	airports := append([]string(nil), intent.Airports...)
	sort.Strings(airports)
	themes := append([]string(nil), intent.Prefs.Themes...)
	sort.Strings(themes)

	material := strings.Join([]string{
		intent.City,
		intent.Window.Start.UTC().Format(time.RFC3339),
		strconv.FormatInt(intent.BudgetCents, 10),
		strings.Join(airports, ","),
		strconv.FormatBool(intent.Prefs.KidFriendly),
		strings.Join(themes, ","),
	}, "|")

	sum := sha256.Sum256([]byte(material))
	return binary.BigEndian.Uint64(sum[:8])
}
