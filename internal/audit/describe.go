package audit

import (
	"fmt"
	"strings"
)

const defaultActorName = "A user"

type phrasing struct {
	noun string
	// create and delete are fmt templates taking the actor name.
	create string
	delete string
	// statusAware modules phrase APPROVED/REJECTED updates as decisions.
	statusAware bool
}

var phrasings = map[Module]phrasing{
	ModuleEmployee:        {noun: "employee", create: "%s created a new employee", delete: "%s deleted an employee"},
	ModuleLeave:           {noun: "leave request", create: "%s submitted a leave request", delete: "%s deleted a leave request", statusAware: true},
	ModuleLeaveResumption: {noun: "leave resumption", create: "%s recorded a leave resumption", delete: "%s deleted a leave resumption", statusAware: true},
	ModuleLoan:            {noun: "loan", create: "%s created a new loan", delete: "%s deleted a loan"},
	ModuleAdvance:         {noun: "salary advance", create: "%s requested a salary advance", delete: "%s deleted a salary advance", statusAware: true},
	ModuleDeduction:       {noun: "deduction", create: "%s added a new deduction", delete: "%s deleted a deduction"},
	ModuleResignation:     {noun: "resignation", create: "%s submitted a resignation", delete: "%s withdrew a resignation", statusAware: true},
	ModulePayroll:         {noun: "payroll", create: "%s processed payroll", delete: "%s deleted a payroll record", statusAware: true},
	ModuleUser:            {noun: "user", create: "%s created a new user", delete: "%s deleted a user"},
	ModuleGeneral:         {noun: "record", create: "%s created a new record", delete: "%s deleted a record"},
}

// DescribeInput carries everything Describe needs; every field is optional.
type DescribeInput struct {
	Action     Action
	Module     Module
	ActorName  string
	EntityName string
	Labels     []string
	// NewStatus is the status value submitted with the request, if any.
	NewStatus string
}

// Describe renders a one-sentence, human-readable summary of a change.
func Describe(in DescribeInput) string {
	actor := strings.TrimSpace(in.ActorName)
	if actor == "" {
		actor = defaultActorName
	}
	ph, ok := phrasings[in.Module]
	if !ok {
		ph = phrasings[ModuleGeneral]
	}
	entity := strings.TrimSpace(in.EntityName)

	switch in.Action {
	case ActionCreate:
		return withEntity(fmt.Sprintf(ph.create, actor), entity, in.Module)
	case ActionDelete:
		return withEntity(fmt.Sprintf(ph.delete, actor), entity, in.Module)
	case ActionUpdate:
		if ph.statusAware {
			switch strings.ToUpper(strings.TrimSpace(in.NewStatus)) {
			case "APPROVED":
				return decision(actor, "approved", ph.noun, entity)
			case "REJECTED":
				return decision(actor, "rejected", ph.noun, entity)
			}
		}
		if len(in.Labels) > 0 {
			return fmt.Sprintf("%s updated %s for %s", actor, strings.Join(in.Labels, ", "), target(entity, ph.noun))
		}
		return fmt.Sprintf("%s updated %s information for %s", actor, ph.noun, target(entity, ph.noun))
	default:
		return fmt.Sprintf("%s performed an action on %s", actor, target(entity, ph.noun))
	}
}

// withEntity appends the entity name when known. Employee and user sentences
// name the entity directly; the others name whom the record belongs to.
func withEntity(sentence, entity string, m Module) string {
	if entity == "" {
		return sentence
	}
	switch m {
	case ModuleEmployee, ModuleUser, ModuleGeneral:
		return sentence + ": " + entity
	default:
		return sentence + " for " + entity
	}
}

func decision(actor, verb, noun, entity string) string {
	s := fmt.Sprintf("%s %s %s %s", actor, verb, article(noun), noun)
	if entity != "" {
		s += " for " + entity
	}
	return s
}

func target(entity, noun string) string {
	if entity != "" {
		return entity
	}
	return article(noun) + " " + noun
}

func article(noun string) string {
	if noun == "" {
		return "a"
	}
	switch noun[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}
