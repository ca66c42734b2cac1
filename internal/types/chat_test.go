package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_Validation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{name: "valid", req: ChatRequest{Message: "average salary?"}},
		{name: "missing message", req: ChatRequest{}, wantErr: true},
		{name: "too long", req: ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1)}, wantErr: true},
		{name: "at limit", req: ChatRequest{Message: strings.Repeat("a", MaxMessageLength)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatRequest_DecodesFilters(t *testing.T) {
	body := `{"message":"hi","context":{"filters":{"search":"treasury","families":["Treasury"],"countries":["Poland"]}}}`

	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "treasury", req.Context.Filters.Search)
	assert.Equal(t, []string{"Treasury"}, req.Context.Filters.Families)
	assert.Equal(t, []string{"Poland"}, req.Context.Filters.Countries)
}

func TestChatRequest_IgnoresUnknownContext(t *testing.T) {
	body := `{"message":"hi","context":{"totalJobs":3,"fullDataset":[{"Job":"x"}]}}`

	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.True(t, req.Context.Filters.IsZero())
}
