package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name string
		in   DescribeInput
		want string
	}{
		{
			name: "leave create",
			in:   DescribeInput{Action: ActionCreate, Module: ModuleLeave, ActorName: "Jane Doe"},
			want: "Jane Doe submitted a leave request",
		},
		{
			name: "leave create with entity",
			in:   DescribeInput{Action: ActionCreate, Module: ModuleLeave, ActorName: "Jane Doe", EntityName: "Jon Snow"},
			want: "Jane Doe submitted a leave request for Jon Snow",
		},
		{
			name: "employee create with entity",
			in:   DescribeInput{Action: ActionCreate, Module: ModuleEmployee, ActorName: "Jane Doe", EntityName: "Jon Snow"},
			want: "Jane Doe created a new employee: Jon Snow",
		},
		{
			name: "delete",
			in:   DescribeInput{Action: ActionDelete, Module: ModuleLoan, ActorName: "Jane Doe"},
			want: "Jane Doe deleted a loan",
		},
		{
			name: "update with labels",
			in:   DescribeInput{Action: ActionUpdate, Module: ModuleEmployee, ActorName: "Jane Doe", EntityName: "John Snow", Labels: []string{"name", "email"}},
			want: "Jane Doe updated name, email for John Snow",
		},
		{
			name: "update without labels falls back",
			in:   DescribeInput{Action: ActionUpdate, Module: ModuleEmployee, ActorName: "Jane Doe"},
			want: "Jane Doe updated employee information for an employee",
		},
		{
			name: "approval overrides labels",
			in:   DescribeInput{Action: ActionUpdate, Module: ModuleLeave, ActorName: "Jane Doe", EntityName: "Jon Snow", Labels: []string{"start date"}, NewStatus: "APPROVED"},
			want: "Jane Doe approved a leave request for Jon Snow",
		},
		{
			name: "rejection without entity",
			in:   DescribeInput{Action: ActionUpdate, Module: ModuleAdvance, ActorName: "Jane Doe", NewStatus: "rejected"},
			want: "Jane Doe rejected a salary advance",
		},
		{
			name: "status on non decision module is a plain update",
			in:   DescribeInput{Action: ActionUpdate, Module: ModuleLoan, ActorName: "Jane Doe", Labels: []string{"status"}, NewStatus: "APPROVED"},
			want: "Jane Doe updated status for a loan",
		},
		{
			name: "missing actor",
			in:   DescribeInput{Action: ActionCreate, Module: ModuleUser},
			want: "A user created a new user",
		},
		{
			name: "unknown module",
			in:   DescribeInput{Action: ActionDelete, Module: Module("INVENTORY"), ActorName: "Jane"},
			want: "Jane deleted a record",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.in))
		})
	}
}

func TestDescribe_ZeroInput(t *testing.T) {
	assert.NotPanics(t, func() { _ = Describe(DescribeInput{}) })
	assert.NotEmpty(t, Describe(DescribeInput{}))
}
