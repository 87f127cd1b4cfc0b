package domain

// DrugCategory classifies a medication order for scheduling purposes.
type DrugCategory string

const (
	CategoryStandard     DrugCategory = "STANDARD"
	CategorySpecialGroup DrugCategory = "SPECIAL_GROUP"
	CategoryHDAT         DrugCategory = "HDAT"
)

// specialGroupDrugs upgrade a declared STANDARD category to SPECIAL_GROUP
// by name, per spec: chlorpromazine, clozapine, olanzapine.
var specialGroupDrugs = map[string]bool{
	"chlorpromazine": true,
	"clozapine":      true,
	"olanzapine":     true,
}

// IsSpecialGroupDrug reports whether name (case-insensitive) is one of the
// three drugs that force SPECIAL_GROUP regardless of declared category.
func IsSpecialGroupDrug(name string) bool {
	return specialGroupDrugs[normalizeDrugName(name)]
}

// RiskFlags carries the patient-level indicators the rule evaluator reads
// when deciding whether an ECG is indicated.
type RiskFlags struct {
	ECGIndicated      bool
	CVRiskPresent     bool
	FamilyHistoryCVD  bool
	InpatientAdmission bool
}

// AnyIndicatesECG reports whether any risk flag alone indicates ECG.
func (f RiskFlags) AnyIndicatesECG() bool {
	return f.ECGIndicated || f.CVRiskPresent || f.FamilyHistoryCVD || f.InpatientAdmission
}

// Patient is identified by a stable pseudonym, never by a directly
// identifying value.
type Patient struct {
	ID        string
	Pseudonym string
	Sex       string // scoping facet for threshold selection; may be empty
	AgeBand   string // scoping facet; may be empty
	RiskFlags RiskFlags
}
