package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/validation"
)

type accountRequest struct {
	Code string `json:"code" validate:"required,max=20"`
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,coa_type"`
}

type lineRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Percent   string `json:"percent" validate:"required"`
}

type ruleRequest struct {
	MerchantName string        `json:"merchant_name" validate:"required"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
	Status       string        `json:"status,omitempty" validate:"omitempty,tx_status"`
}

func TestValidator_Struct(t *testing.T) {
	v := validation.New()

	type testCase struct {
		name       string
		input      any
		wantFields map[string]string
	}

	tests := []testCase{
		{
			name:  "valid account",
			input: accountRequest{Code: "5100", Name: "Groceries", Type: "Expense"},
		},
		{
			name:  "bad account type",
			input: accountRequest{Code: "5100", Name: "Groceries", Type: "cash"},
			wantFields: map[string]string{
				"type": "must be one of [asset liability equity income expense transfer]",
			},
		},
		{
			name:  "missing fields use json names",
			input: accountRequest{Type: "asset"},
			wantFields: map[string]string{
				"code": "is required",
				"name": "is required",
			},
		},
		{
			name: "nested lines",
			input: ruleRequest{
				MerchantName: "Netflix",
				Lines:        []lineRequest{{AccountID: "nope", Percent: "50"}},
				Status:       "pending",
			},
			wantFields: map[string]string{
				"lines[0].account_id": "must be a UUID",
				"status":              "must be uncategorized, categorized or split",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.input)
			if tc.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.wantFields, verr.Fields)
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &validation.Error{Fields: map[string]string{"name": "is required", "code": "is required"}}
	assert.Equal(t, "validation failed: code: is required; name: is required", err.Error())
}
