package businessflow

import (
	"fmt"
	"time"

	"github.com/anshu-9837/Banning/utils"
)

// newReportID builds "REP" + timestamp + actor id, plus a random suffix so
// several reports from one actor within a second stay unique.
func newReportID(now time.Time, actorID int64) (string, error) {
	suffix, err := utils.RandomHex(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("REP%s%d-%s", utils.IDTimestamp(now), actorID, suffix), nil
}

func newBatchID(now time.Time, actorID int64) (string, error) {
	suffix, err := utils.RandomHex(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MULTI%s%d-%s", utils.IDTimestamp(now), actorID, suffix), nil
}

// newSessionToken keeps the literal "SESS" + timestamp + 4 random digits format.
func newSessionToken(now time.Time) (string, error) {
	digits, err := utils.RandomDigits(4)
	if err != nil {
		return "", err
	}
	return "SESS" + utils.IDTimestamp(now) + digits, nil
}

// generateLoginCode returns a code uniform over [100000, 999999].
func generateLoginCode() (string, error) {
	return utils.RandomDigits(6)
}
