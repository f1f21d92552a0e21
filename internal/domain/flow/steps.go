package flow

// Step is one stage of the care pathway. Order matters: a visit moves through
// the steps in declaration order, with the billing/pharmacy/lab sub-chains
// skipped when no prescription or lab order exists.
type Step string

const (
	StepRegistration        Step = "registration"
	StepBillingConsultation Step = "billing_consultation"
	StepVitals              Step = "vitals"
	StepConsultation        Step = "consultation"
	StepBillingPharmacy     Step = "billing_pharmacy"
	StepPharmacy            Step = "pharmacy"
	StepBillingLab          Step = "billing_lab"
	StepLab                 Step = "lab"
	StepDischarge           Step = "discharge"
)

// Steps lists the pathway in order.
var Steps = []Step{
	StepRegistration,
	StepBillingConsultation,
	StepVitals,
	StepConsultation,
	StepBillingPharmacy,
	StepPharmacy,
	StepBillingLab,
	StepLab,
	StepDischarge,
}

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(Steps))
	for i, s := range Steps {
		m[s] = i
	}
	return m
}()

// Index returns the step's position in the pathway, or -1 for unknown steps.
func (s Step) Index() int {
	i, ok := stepIndex[s]
	if !ok {
		return -1
	}
	return i
}

// Valid reports whether s names a pathway step.
func (s Step) Valid() bool {
	_, ok := stepIndex[s]
	return ok
}

// Permissions gating each step.
const (
	PermRegisterPatient = "register_patient"
	PermCollectPayment  = "collect_payment"
	PermRecordVitals    = "record_vitals"
	PermRecordDiagnosis = "record_diagnosis"
	PermDispenseDrugs   = "dispense_drugs"
	PermPerformLabTests = "perform_lab_tests"
	PermDischarge       = "discharge_patient"
)

// stepPermission maps each step to the permission required to act on it.
var stepPermission = map[Step]string{
	StepRegistration:        PermRegisterPatient,
	StepBillingConsultation: PermCollectPayment,
	StepVitals:              PermRecordVitals,
	StepConsultation:        PermRecordDiagnosis,
	StepBillingPharmacy:     PermCollectPayment,
	StepPharmacy:            PermDispenseDrugs,
	StepBillingLab:          PermCollectPayment,
	StepLab:                 PermPerformLabTests,
	StepDischarge:           PermDischarge,
}

// permissionRole maps a permission to the role that conventionally holds it.
// UI hint only; authorization goes through the role service.
var permissionRole = map[string]string{
	PermRegisterPatient: "receptionist",
	PermCollectPayment:  "billing",
	PermRecordVitals:    "nurse",
	PermRecordDiagnosis: "doctor",
	PermDispenseDrugs:   "pharmacist",
	PermPerformLabTests: "lab_technician",
	PermDischarge:       "doctor",
}

// stepSuccessors lists the steps reachable from each step. Consultation fans
// out because pharmacy, lab, and discharge are all valid continuations.
var stepSuccessors = map[Step][]Step{
	StepRegistration:        {StepBillingConsultation},
	StepBillingConsultation: {StepVitals},
	StepVitals:              {StepConsultation},
	StepConsultation:        {StepBillingPharmacy, StepBillingLab, StepDischarge},
	StepBillingPharmacy:     {StepPharmacy},
	StepPharmacy:            {StepBillingLab, StepDischarge},
	StepBillingLab:          {StepLab},
	StepLab:                 {StepDischarge},
	StepDischarge:           nil,
}

// RequiredPermission returns the permission gating the step.
func (s Step) RequiredPermission() string { return stepPermission[s] }

// ConventionalRole returns the role name that usually performs the step.
func (s Step) ConventionalRole() string { return permissionRole[stepPermission[s]] }

// Successors returns the steps reachable from s.
func (s Step) Successors() []Step { return stepSuccessors[s] }
