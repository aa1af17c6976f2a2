package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounding prose", `Sure. {"a":1} Hope that helps.`, `{"a":1}`, true},
		{"nested", `x {"a":{"b":[1,{"c":2}]}} y`, `{"a":{"b":[1,{"c":2}]}}`, true},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"}\" now"}`, `{"a":"say \"}\" now"}`, true},
		{"first of two", `{"a":1}{"b":2}`, `{"a":1}`, true},
		{"quoted prose before", `he said "hi" {"a":1}`, `{"a":1}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"none", `no json here`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindJSONObject(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	obj, err := DecodeObject("```json\n{\"ticker\": \"MU\", \"conviction\": 7}\n```")
	require.NoError(t, err)
	assert.Equal(t, "MU", obj["ticker"])
	assert.Equal(t, 7.0, obj["conviction"])

	obj, err = DecodeObject(`Notes {not json} then {"ok": true}`)
	require.NoError(t, err)
	assert.Equal(t, true, obj["ok"])

	_, err = DecodeObject(`{"finding_type":"material","meta":{"requires_escalation":true}, oops}`)
	assert.ErrorIs(t, err, ErrNoJSONObject, "nested object of a malformed one is not decoded")

	obj, err = DecodeObject(`{"meta":{"a":1}, oops} and later {"ok": true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, obj)

	_, err = DecodeObject("I could not find anything relevant today.")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = DecodeObject("")
	assert.ErrorIs(t, err, ErrNoJSONObject)
}
