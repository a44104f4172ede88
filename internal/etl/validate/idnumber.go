package validate

import (
	"strings"
)

var checksumWeights = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// CheckDigit computes the tenth digit of a national ID from its first nine.
// Products of ten or more are reduced by nine before summing.
func CheckDigit(first9 string) int {
	sum := 0
	for i := 0; i < 9; i++ {
		v := int(first9[i]-'0') * checksumWeights[i]
		if v >= 10 {
			v -= 9
		}
		sum += v
	}
	if sum%10 == 0 {
		return 0
	}
	return 10 - sum%10
}

// RepairID normalizes a raw ID value: trailing ".0" removed, letter O read as
// zero when the value carries digits, separators and other non-digits dropped, and a 9-digit value not
// starting with 0 left-padded with a zero.
func RepairID(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".0")
	if strings.ContainsAny(s, "0123456789") {
		s = strings.ReplaceAll(s, "O", "0")
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) == 9 && s[0] != '0' {
		s = "0" + s
	}
	return s
}

// IDResult is the outcome of checking one ID.
type IDResult struct {
	// Accepted is the ID the row will carry, possibly repaired or truncated.
	// Empty with OK set means the value held no digits and the row is
	// treated as having no ID.
	Accepted string
	OK       bool
	// ChecksumFailed is set when the check digit did not match but the
	// rules still accepted the value.
	ChecksumFailed bool
}

// CheckID applies rules to raw.
func CheckID(raw string, rules IDRules) IDResult {
	id := strings.TrimSpace(raw)
	if rules.Repair {
		id = RepairID(id)
		if id == "" {
			// Placeholders such as "S/N" or "SIN CEDULA": the row has no ID.
			return IDResult{OK: true}
		}
	}
	res := IDResult{Accepted: id}

	if len(id) != 10 {
		if rules.TruncateLong && len(id) >= 11 && isDigits(id) {
			res.Accepted = id[:10]
			res.OK = true
		}
		return res
	}
	if !isDigits(id) {
		return res
	}

	province := int(id[0]-'0')*10 + int(id[1]-'0')
	if province < 1 || province > rules.MaxProvince {
		res.OK = rules.AcceptProvince90s && province >= 90
		return res
	}

	third := int(id[2] - '0')
	if third >= 7 {
		res.OK = rules.NonPersonThirdDigit
		return res
	}

	if CheckDigit(id[:9]) != int(id[9]-'0') {
		res.ChecksumFailed = true
		res.OK = !rules.RequireChecksum
		return res
	}

	res.OK = true
	return res
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
