package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// SubsidyType identifies one of the program's disbursement lines. Each type
// has its own source sheet and staging table.
type SubsidyType string

const (
	SubsidySeeds         SubsidyType = "seeds"
	SubsidyFertilizer    SubsidyType = "fertilizer"
	SubsidyMechanization SubsidyType = "mechanization"
	SubsidyPlants        SubsidyType = "plants"
)

// AllSubsidyTypes returns every subsidy type in a stable order.
func AllSubsidyTypes() []SubsidyType {
	return []SubsidyType{SubsidySeeds, SubsidyFertilizer, SubsidyMechanization, SubsidyPlants}
}

// ParseSubsidyType accepts the English name or the Spanish sheet name.
func ParseSubsidyType(s string) (SubsidyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seeds", "semillas":
		return SubsidySeeds, nil
	case "fertilizer", "fertilizers", "fertilizantes":
		return SubsidyFertilizer, nil
	case "mechanization", "mecanizacion", "mecanización":
		return SubsidyMechanization, nil
	case "plants", "plantas":
		return SubsidyPlants, nil
	}
	return "", eris.Errorf("model: unknown subsidy type %q", s)
}

// StagingTable is the schema-qualified staging table for the type.
func (t SubsidyType) StagingTable() string {
	return "staging." + string(t)
}
