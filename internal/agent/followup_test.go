package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmFollowUp(t *testing.T) {
	cases := []struct {
		name     string
		original string
		data     string
		want     string
	}{
		{
			name:     "identifier from payload",
			original: "delete student ramesh",
			data:     `[{"confirm":true,"student_id":42}]`,
			want:     "delete student ID 42 with confirmation",
		},
		{
			name:     "named target without identifier",
			original: "remove Ramesh Kumar",
			data:     `[{"confirm":true}]`,
			want:     "remove student Ramesh Kumar with confirmation",
		},
		{
			name:     "marker is not doubled",
			original: "delete student ramesh with confirmation",
			data:     `[{"confirm":true}]`,
			want:     "delete student ramesh with confirmation",
		},
		{
			name:     "unparsable original uses payload identifier",
			original: "",
			data:     `[{"confirm":true,"id":5}]`,
			want:     "delete student ID 5 with confirmation",
		},
		{
			name:     "unparsable original without identifier",
			original: "42?",
			data:     `[{"confirm":true}]`,
			want:     "42? with confirmation",
		},
		{
			name:     "payload verb and entity",
			original: "vacate room 12",
			data:     `[{"confirm":true,"id":"r-1","action":"vacate","entity":"room"}]`,
			want:     "vacate room ID r-1 with confirmation",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action := confirmationAction(t, tc.original, tc.data)
			follow, ok := confirmFollowUp(action, *action.Payload.Confirmation, "student")
			require.True(t, ok)
			assert.Equal(t, tc.want, follow.Utterance)
		})
	}
}

func TestConfirmFollowUpWithNothingToSend(t *testing.T) {
	action := confirmationAction(t, "", `[{"confirm":true}]`)
	_, ok := confirmFollowUp(action, *action.Payload.Confirmation, "student")
	assert.False(t, ok)
}

func TestSelectFollowUp(t *testing.T) {
	const choices = `[{"id":7,"name":"Shiva K","room_no":"101"},{"id":9,"name":"Shiva R","room_no":"102"}]`
	cases := []struct {
		name     string
		original string
		want     string
	}{
		{name: "entity and name", original: "delete student shiva", want: "delete student ID 9"},
		{name: "name only", original: "show fees of Shiva", want: "show fees of student ID 9"},
		{name: "punctuation", original: "show fees of shiva, please", want: "show fees of student ID 9 please"},
		{name: "full name", original: "delete shiva r", want: "delete student ID 9"},
		{name: "plural entity", original: "list students shiva", want: "list student ID 9"},
		{name: "no name token", original: "show payments", want: "show payments for student ID 9"},
		{name: "no original", original: "", want: "student ID 9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action := disambiguationAction(t, tc.original, choices)
			follow := selectFollowUp(action, action.Payload.Choices[1], "student")
			assert.Equal(t, tc.want, follow.Utterance)
			assert.Equal(t, "9", follow.Intent.ResolvedID)
			assert.Equal(t, tc.original, follow.Intent.OriginalUtterance)
		})
	}
}

func TestParseTarget(t *testing.T) {
	got, ok := parseTarget("Delete Student Ramesh", "student")
	require.True(t, ok)
	assert.Equal(t, target{verb: "delete", entity: "student", name: "Ramesh"}, got)

	got, ok = parseTarget("delete student ID 4", "student")
	assert.False(t, ok)
	assert.Equal(t, "delete", got.verb)

	_, ok = parseTarget("delete", "student")
	assert.False(t, ok)
}
