package audit

import (
	"net/http"
	"regexp"
	"strings"
)

// Classification is the outcome of running a request through the Classifier.
type Classification struct {
	Module      Module
	EntityType  Module
	ShouldAudit bool
	// Reason names the rule that disabled auditing. Empty when ShouldAudit is true.
	Reason string
}

type moduleRule struct {
	name    string
	pattern *regexp.Regexp
	module  Module
}

type skipRule struct {
	reason  string
	pattern *regexp.Regexp
}

// BareNumericPathIsEmployee classifies a path that is nothing but a numeric id
// segment (e.g. "/42") as an EMPLOYEE request. Employee routes are mounted so
// that the handler sees only the id; keep the rule until that mount changes.
const BareNumericPathIsEmployee = "bare-numeric-path-is-employee"

// Module rules are evaluated in order; first match wins. More specific
// prefixes come before the ones they contain ("/leave-resumptions" before "/leaves").
var moduleRules = []moduleRule{
	{"leave-resumption", regexp.MustCompile(`/leave-resumptions?(/|$)`), ModuleLeaveResumption},
	{"leave", regexp.MustCompile(`/leaves?(/|$)`), ModuleLeave},
	{"loan", regexp.MustCompile(`/loans?(/|$)`), ModuleLoan},
	{"advance", regexp.MustCompile(`/(salary-)?advances?(/|$)`), ModuleAdvance},
	{"deduction", regexp.MustCompile(`/deductions?(/|$)`), ModuleDeduction},
	{"resignation", regexp.MustCompile(`/resignations?(/|$)`), ModuleResignation},
	{"payroll", regexp.MustCompile(`/payrolls?(/|$)`), ModulePayroll},
	{"user", regexp.MustCompile(`/users?(/|$)`), ModuleUser},
	{"employee", regexp.MustCompile(`/employees?(/|$)`), ModuleEmployee},
	{BareNumericPathIsEmployee, regexp.MustCompile(`^/\d+/?$`), ModuleEmployee},
}

// Skip rules are path based and apply to every method.
var skipRules = []skipRule{
	{"health", regexp.MustCompile(`^/(api/)?(health|healthz|ready|readyz|metrics)(/|$)`)},
	{"auth", regexp.MustCompile(`/(auth|login|logout|refresh-token|register)(/|$)`)},
	{"audit_surface", regexp.MustCompile(`/audit(-logs?)?(/|$)`)},
	{"file_serving", regexp.MustCompile(`/(uploads|files|static|downloads)(/|$)`)},
	{"reference", regexp.MustCompile(`(dropdown|lookup|/test-)`)},
	{"side_endpoint", regexp.MustCompile(`/[^/]+/(avatar|documents?|photo)(/|$)`)},
	{"dashboard", regexp.MustCompile(`/dashboard(/|$)`)},
	{"status_only", regexp.MustCompile(`/employees?/[^/]+/status/?$`)},
}

// Classifier derives module and audit eligibility from method + path.
// It holds only compiled, read-only tables and is safe for concurrent use.
type Classifier struct {
	modules []moduleRule
	skips   []skipRule
}

func NewClassifier() *Classifier {
	return &Classifier{modules: moduleRules, skips: skipRules}
}

// Classify is a pure function of its inputs.
func (c *Classifier) Classify(path, method string) Classification {
	p := normalizePath(path)

	mod := ModuleGeneral
	for _, r := range c.modules {
		if r.pattern.MatchString(p) {
			mod = r.module
			break
		}
	}
	out := Classification{Module: mod, EntityType: mod, ShouldAudit: true}

	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		out.ShouldAudit = false
		out.Reason = "read_method"
		return out
	}

	for _, r := range c.skips {
		if r.pattern.MatchString(p) {
			out.ShouldAudit = false
			out.Reason = r.reason
			return out
		}
	}
	return out
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	p := strings.ToLower(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
