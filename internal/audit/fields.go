package audit

import "strings"

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindDate
)

// field ties the two naming conventions of one attribute together:
// Key is the request payload name (camelCase), Column the storage name
// (UPPER_SNAKE). Label is the human-facing change label; several fields may
// share one label (firstName and lastName both report "name").
type field struct {
	Key    string
	Column string
	Label  string
	Kind   fieldKind
}

var (
	fFirstName   = field{"firstName", "FIRST_NAME", "name", kindText}
	fMiddleName  = field{"middleName", "MIDDLE_NAME", "name", kindText}
	fLastName    = field{"lastName", "LAST_NAME", "name", kindText}
	fEmail       = field{"email", "EMAIL", "email", kindText}
	fPhone       = field{"phone", "PHONE", "phone number", kindText}
	fAddress     = field{"address", "ADDRESS", "address", kindText}
	fStatus      = field{"status", "STATUS", "status", kindText}
	fDepartment  = field{"department", "DEPARTMENT", "department", kindText}
	fDesignation = field{"designation", "DESIGNATION", "designation", kindText}
	fReason      = field{"reason", "REASON", "reason", kindText}
	fRemarks     = field{"remarks", "REMARKS", "remarks", kindText}
	fAmount      = field{"amount", "AMOUNT", "amount", kindNumber}
	fStartDate   = field{"startDate", "START_DATE", "start date", kindDate}
	fEndDate     = field{"endDate", "END_DATE", "end date", kindDate}
)

// moduleFields lists, per module, the fields that are snapshotted and diffed.
// Order is significant: change labels are reported in this order.
var moduleFields = map[Module][]field{
	ModuleEmployee: {
		fFirstName, fMiddleName, fLastName, fEmail, fPhone, fAddress,
		{"gender", "GENDER", "gender", kindText},
		{"dateOfBirth", "DATE_OF_BIRTH", "date of birth", kindDate},
		{"employeeCode", "EMPLOYEE_CODE", "employee code", kindText},
		fDepartment, fDesignation,
		{"joiningDate", "JOINING_DATE", "joining date", kindDate},
		{"basicSalary", "BASIC_SALARY", "salary", kindNumber},
		{"bankName", "BANK_NAME", "bank details", kindText},
		{"bankAccountNumber", "BANK_ACCOUNT_NUMBER", "bank details", kindText},
		{"nationalId", "NATIONAL_ID", "national ID", kindText},
		fStatus,
	},
	ModuleLeave: {
		{"leaveType", "LEAVE_TYPE", "leave type", kindText},
		fStartDate, fEndDate,
		{"totalDays", "TOTAL_DAYS", "duration", kindNumber},
		fReason, fStatus, fRemarks,
	},
	ModuleLeaveResumption: {
		{"resumptionDate", "RESUMPTION_DATE", "resumption date", kindDate},
		{"actualDays", "ACTUAL_DAYS", "days taken", kindNumber},
		fRemarks, fStatus,
	},
	ModuleLoan: {
		{"loanType", "LOAN_TYPE", "loan type", kindText},
		fAmount,
		{"interestRate", "INTEREST_RATE", "interest rate", kindNumber},
		{"tenureMonths", "TENURE_MONTHS", "tenure", kindNumber},
		{"monthlyInstallment", "MONTHLY_INSTALLMENT", "installment", kindNumber},
		fStartDate, fReason, fStatus,
	},
	ModuleAdvance: {
		{"advanceType", "ADVANCE_TYPE", "advance type", kindText},
		fAmount,
		{"repaymentMonths", "REPAYMENT_MONTHS", "repayment period", kindNumber},
		{"requestDate", "REQUEST_DATE", "request date", kindDate},
		fReason, fStatus,
	},
	ModuleDeduction: {
		{"deductionType", "DEDUCTION_TYPE", "deduction type", kindText},
		fAmount,
		{"deductionMonth", "DEDUCTION_MONTH", "deduction month", kindText},
		{"description", "DESCRIPTION", "description", kindText},
		fStatus,
	},
	ModuleResignation: {
		{"resignationDate", "RESIGNATION_DATE", "resignation date", kindDate},
		{"lastWorkingDate", "LAST_WORKING_DATE", "last working date", kindDate},
		{"noticePeriodDays", "NOTICE_PERIOD_DAYS", "notice period", kindNumber},
		fReason, fStatus,
	},
	ModulePayroll: {
		{"payPeriod", "PAY_PERIOD", "pay period", kindText},
		{"grossSalary", "GROSS_SALARY", "gross salary", kindNumber},
		{"netSalary", "NET_SALARY", "net salary", kindNumber},
		{"paymentDate", "PAYMENT_DATE", "payment date", kindDate},
		fStatus,
	},
	ModuleUser: {
		{"username", "USERNAME", "username", kindText},
		fFirstName, fLastName, fEmail,
		{"role", "ROLE", "role", kindText},
		fStatus,
	},
}

// FieldTable is the immutable, precomputed lookup built from moduleFields.
// Build it once at startup and share it.
type FieldTable struct {
	fields   map[Module][]field
	byColumn map[Module]map[string]string
	byKey    map[Module]map[string]struct{}
}

func NewFieldTable() *FieldTable {
	t := &FieldTable{
		fields:   make(map[Module][]field, len(moduleFields)),
		byColumn: make(map[Module]map[string]string, len(moduleFields)),
		byKey:    make(map[Module]map[string]struct{}, len(moduleFields)),
	}
	for m, fs := range moduleFields {
		cp := make([]field, len(fs))
		copy(cp, fs)
		t.fields[m] = cp

		cols := make(map[string]string, len(fs))
		keys := make(map[string]struct{}, len(fs))
		for _, f := range fs {
			cols[f.Column] = f.Key
			keys[f.Key] = struct{}{}
		}
		t.byColumn[m] = cols
		t.byKey[m] = keys
	}
	return t
}

// Columns returns the storage column names tracked for a module.
func (t *FieldTable) Columns(m Module) []string {
	fs := t.fields[m]
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Column)
	}
	return out
}

// canonicalKey maps a key in either convention to the payload convention.
// Unknown storage-style keys are converted generically (EMPLOYEE_ID -> employeeId).
func (t *FieldTable) canonicalKey(m Module, k string) string {
	if _, ok := t.byKey[m][k]; ok {
		return k
	}
	if key, ok := t.byColumn[m][strings.ToUpper(k)]; ok {
		return key
	}
	if strings.Contains(k, "_") || k == strings.ToUpper(k) {
		return snakeToCamel(k)
	}
	return k
}

// Normalize rewrites all keys of v into the payload convention for module m.
func (t *FieldTable) Normalize(m Module, v map[string]any) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[t.canonicalKey(m, k)] = val
	}
	return out
}

func snakeToCamel(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
