package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Ukrainian month names in the genitive case, as they appear in
// "15 жовтня 2015" publication dates.
var monthsUA = map[string]int{
	"січня":     1,
	"лютого":    2,
	"березня":   3,
	"квітня":    4,
	"травня":    5,
	"червня":    6,
	"липня":     7,
	"серпня":    8,
	"вересня":   9,
	"жовтня":    10,
	"листопада": 11,
	"грудня":    12,
}

var uaDate = regexp.MustCompile(`(\d{1,2})\s+(\S+)\s+(\d{4})`)

var nonDigit = regexp.MustCompile(`\D`)

// NormalizeDate converts "15 жовтня 2015" or an ISO timestamp
// ("2021-12-02T00:00:00.000Z") to "YYYY-MM-DD". Returns "" when the input is
// empty or not recognized.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	if m := uaDate.FindStringSubmatch(raw); m != nil {
		month, ok := monthsUA[strings.ToLower(m[2])]
		if ok {
			day, _ := strconv.Atoi(m[1])
			return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
		}
	}
	if i := strings.Index(raw, "T"); i == 10 {
		return raw[:10]
	}
	return ""
}

// CleanVotes extracts the integer vote count from a label such as
// "12 345 голосів". Returns 0 when no digits are present.
func CleanVotes(raw string) int {
	digits := nonDigit.ReplaceAllString(raw, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
