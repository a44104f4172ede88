package validate

import "github.com/rotisserie/eris"

// Severity decides what a rule violation does to a row.
type Severity int

const (
	// Ignore skips the rule.
	Ignore Severity = iota
	// Advisory logs and counts the violation but keeps the row valid.
	Advisory
	// Reject marks the row invalid and records the violation code.
	Reject
)

// IDRules configures national ID acceptance.
type IDRules struct {
	// Repair cleans float artifacts, letter O, separators and pads 9-digit values.
	Repair bool
	// TruncateLong accepts 11+ digit values (RUC numbers) as their first ten digits.
	TruncateLong bool
	// MaxProvince is the highest accepted province code; the lowest is always 1.
	MaxProvince int
	// AcceptProvince90s accepts province codes 90-99 without further checks.
	AcceptProvince90s bool
	// NonPersonThirdDigit accepts third digits 7-9 without the checksum.
	NonPersonThirdDigit bool
	// RequireChecksum rejects IDs whose check digit does not match. When
	// false a mismatch is only an advisory.
	RequireChecksum bool
}

// Policy parameterizes the single Validator. Strict and Flexible are the two
// supported presets; they differ only in these fields.
type Policy struct {
	Name string
	ID   IDRules

	YearMismatch Severity

	Amount Severity
	// AmountTolerance is absolute when AmountRelative is false, otherwise a
	// fraction of the declared amount.
	AmountTolerance float64
	AmountRelative  bool

	// HectaresRatio rejects rows whose benefited hectares exceed total
	// hectares times this ratio.
	HectaresRatio float64

	Coordinates Severity

	// OrganizationWithoutName applies when an organization is present and
	// the beneficiary name is missing.
	OrganizationWithoutName Severity
	// NameWithID applies when an ID is present and the beneficiary name is missing.
	NameWithID Severity

	HectaresWithoutCrop Severity
}

// Strict rejects any row that breaks a business rule.
func Strict() Policy {
	return Policy{
		Name: "strict",
		ID: IDRules{
			MaxProvince:     24,
			RequireChecksum: true,
		},
		YearMismatch:            Reject,
		Amount:                  Reject,
		AmountTolerance:         0.01,
		HectaresRatio:           1.0,
		Coordinates:             Reject,
		OrganizationWithoutName: Reject,
		NameWithID:              Reject,
		HectaresWithoutCrop:     Reject,
	}
}

// Flexible repairs recoverable defects and downgrades soft rules to advisories.
func Flexible() Policy {
	return Policy{
		Name: "flexible",
		ID: IDRules{
			Repair:              true,
			TruncateLong:        true,
			MaxProvince:         30,
			AcceptProvince90s:   true,
			NonPersonThirdDigit: true,
		},
		YearMismatch:            Advisory,
		Amount:                  Advisory,
		AmountTolerance:         0.10,
		AmountRelative:          true,
		HectaresRatio:           1.5,
		Coordinates:             Advisory,
		OrganizationWithoutName: Ignore,
		NameWithID:              Reject,
		HectaresWithoutCrop:     Ignore,
	}
}

// Named returns the preset for name. For the flexible preset the
// tolerances replace the defaults when positive.
func Named(name string, hectaresRatio, amountTolerance float64) (Policy, error) {
	switch name {
	case "strict":
		return Strict(), nil
	case "flexible", "":
		p := Flexible()
		if hectaresRatio > 0 {
			p.HectaresRatio = hectaresRatio
		}
		if amountTolerance > 0 {
			p.AmountTolerance = amountTolerance
		}
		return p, nil
	}
	return Policy{}, eris.Errorf("validate: unknown policy %q", name)
}
