package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoActor      = errors.New("audit: no authenticated actor")
	ErrUnsuccessful = errors.New("audit: response indicates failure")
	ErrBuildFailed  = errors.New("audit: record build failed")
)

// BuildInput is the request/response material captured by the middleware.
type BuildInput struct {
	Method    string
	Class     Classification
	ActorID   string
	ActorName string

	// Params are the route parameters (e.g. "id").
	Params map[string]string
	// Body is the decoded request payload; nil when absent or not an object.
	Body map[string]any
	// Snapshot is the pre-mutation state for UPDATE; nil when unavailable.
	Snapshot map[string]any

	Status   int
	Response []byte

	IPAddress string
	UserAgent string
}

type idSource int

const (
	fromParam idSource = iota
	fromBody
	fromData
)

type idExtractor struct {
	from idSource
	key  string
}

var moduleIDKeys = map[Module]string{
	ModuleEmployee:        "employeeId",
	ModuleLeave:           "leaveId",
	ModuleLeaveResumption: "resumptionId",
	ModuleLoan:            "loanId",
	ModuleAdvance:         "advanceId",
	ModuleDeduction:       "deductionId",
	ModuleResignation:     "resignationId",
	ModulePayroll:         "payrollId",
	ModuleUser:            "userId",
}

var fallbackIDKeys = []string{"employeeId", "leaveId", "loanId", "advanceId", "deductionId", "resignationId"}

// buildIDExtractors returns, per module, the ordered id lookups; first hit wins.
func buildIDExtractors() map[Module][]idExtractor {
	out := make(map[Module][]idExtractor, len(phrasings))
	for m := range phrasings {
		ex := []idExtractor{{fromParam, "id"}}
		if k, ok := moduleIDKeys[m]; ok {
			ex = append(ex, idExtractor{fromBody, k})
		}
		ex = append(ex, idExtractor{fromData, "id"})
		if k, ok := moduleIDKeys[m]; ok {
			ex = append(ex, idExtractor{fromData, k})
		}
		for _, k := range fallbackIDKeys {
			ex = append(ex, idExtractor{fromBody, k})
		}
		out[m] = ex
	}
	return out
}

// Builder turns captured request material into a Record. It is stateless
// apart from its read-only tables.
type Builder struct {
	fields     *FieldTable
	extractors map[Module][]idExtractor
	maxPayload int
}

func NewBuilder(fields *FieldTable, maxPayload int) *Builder {
	if fields == nil {
		fields = NewFieldTable()
	}
	return &Builder{fields: fields, extractors: buildIDExtractors(), maxPayload: maxPayload}
}

// Build returns ErrNoActor or ErrUnsuccessful when the request must not be
// recorded. It never panics.
func (b *Builder) Build(in BuildInput) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %v", ErrBuildFailed, r)
		}
	}()

	if strings.TrimSpace(in.ActorID) == "" {
		return nil, ErrNoActor
	}
	resp, ok := decodeResponse(in.Status, in.Response)
	if !ok {
		return nil, ErrUnsuccessful
	}
	data, _ := resp["data"].(map[string]any)

	mod := in.Class.Module
	if mod == "" {
		mod = ModuleGeneral
	}
	action := ActionFromMethod(in.Method)

	entityID, src := b.entityID(mod, in.Params, in.Body, data)

	var oldVals, newVals any
	switch action {
	case ActionCreate:
		nv := Sanitize(in.Body)
		if src == fromData && entityID != "" {
			if nv == nil {
				nv = map[string]any{}
			}
			if _, exists := nv["id"]; !exists {
				nv["id"] = entityID
			}
		}
		if nv != nil {
			newVals = nv
		}
	case ActionUpdate:
		if in.Snapshot != nil {
			oldVals = Sanitize(in.Snapshot)
		}
		if nv := Sanitize(in.Body); nv != nil {
			newVals = nv
		}
	}

	var labels []string
	if action == ActionUpdate {
		labels = b.fields.Diff(mod, in.Snapshot, in.Body)
	}

	merged := b.merged(mod, in.Snapshot, in.Body, data)
	entityName := resolveName(merged)

	rec = &Record{
		ActorID:         in.ActorID,
		RelatedEntityID: relatedEntity(mod, entityID, merged),
		Module:          mod,
		Action:          action,
		EntityType:      in.Class.EntityType,
		EntityID:        entityID,
		EntityName:      entityName,
		Description: Describe(DescribeInput{
			Action:     action,
			Module:     mod,
			ActorName:  in.ActorName,
			EntityName: entityName,
			Labels:     labels,
			NewStatus:  scalarString(in.Body["status"]),
		}),
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	}
	if rec.EntityType == "" {
		rec.EntityType = mod
	}
	if rec.OldValues, err = boundJSON(oldVals, b.maxPayload); err != nil {
		return nil, fmt.Errorf("%w: old values: %v", ErrBuildFailed, err)
	}
	if rec.NewValues, err = boundJSON(newVals, b.maxPayload); err != nil {
		return nil, fmt.Errorf("%w: new values: %v", ErrBuildFailed, err)
	}
	return rec, nil
}

// decodeResponse reports success as status < 400 and, for JSON objects with a
// boolean "success" member, success == true.
func decodeResponse(status int, body []byte) (map[string]any, bool) {
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusBadRequest {
		return nil, false
	}
	var resp map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&resp); err != nil {
			resp = nil
		}
	}
	if s, ok := resp["success"].(bool); ok && !s {
		return resp, false
	}
	return resp, true
}

func (b *Builder) entityID(m Module, params map[string]string, body, data map[string]any) (string, idSource) {
	for _, ex := range b.extractors[m] {
		var v string
		switch ex.from {
		case fromParam:
			v = strings.TrimSpace(params[ex.key])
		case fromBody:
			v = scalarString(body[ex.key])
		case fromData:
			v = scalarString(data[ex.key])
		}
		if v != "" {
			return v, ex.from
		}
	}
	return "", fromParam
}

// merged layers snapshot, then payload, then response data into one view
// keyed in the payload convention. Later layers win.
func (b *Builder) merged(m Module, layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, l := range layers {
		for k, v := range b.fields.Normalize(m, l) {
			if scalarString(v) == "" {
				continue
			}
			out[k] = v
		}
	}
	return out
}

func resolveName(v map[string]any) string {
	first := scalarString(v["firstName"])
	last := scalarString(v["lastName"])
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	for _, k := range []string{"fullName", "name", "employeeName", "username"} {
		if s := scalarString(v[k]); s != "" {
			return s
		}
	}
	return ""
}

func relatedEntity(m Module, entityID string, merged map[string]any) string {
	if m == ModuleEmployee {
		return entityID
	}
	return scalarString(merged["employeeId"])
}
