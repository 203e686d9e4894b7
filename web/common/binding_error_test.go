package common

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type bindingProbe struct {
	Direction string `json:"direction" binding:"required,direction"`
	WorkDate  string `json:"workDate" binding:"required,workdate"`
	Percent   int    `json:"percent" binding:"gte=0,lte=100"`
}

func TestFormatBindingError(t *testing.T) {
	tests := []struct {
		name  string
		probe bindingProbe
		want  string
	}{
		{
			name:  "unknown direction",
			probe: bindingProbe{Direction: "up", WorkDate: "2025-03-01"},
			want:  "Field 'direction' must be one of north, east, south, west",
		},
		{
			name:  "bad work date",
			probe: bindingProbe{Direction: "north", WorkDate: "01/03/2025"},
			want:  "Field 'workDate' must be a yyyy-MM-dd date",
		},
		{
			name:  "percent above range",
			probe: bindingProbe{Direction: "east", WorkDate: "2025-03-01", Percent: 120},
			want:  "Field 'percent' must be less than or equal to 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.probe)
			assert.Equal(t, tt.want, FormatBindingError(err))
		})
	}
}

func TestFormatBindingErrorDecoding(t *testing.T) {
	assert.Equal(t, "Request body is empty", FormatBindingError(io.EOF))
	assert.Equal(t, "", FormatBindingError(nil))

	var v struct {
		Percent int `json:"percent"`
	}
	err := json.Unmarshal([]byte(`{"percent":"high"}`), &v)
	assert.Equal(t, "Field 'percent' should be of type int", FormatBindingError(err))
}

func TestDateOnlyRoundTrip(t *testing.T) {
	var d DateOnly
	assert.NoError(t, json.Unmarshal([]byte(`"2025-03-01"`), &d))
	out, err := json.Marshal(d)
	assert.NoError(t, err)
	assert.JSONEq(t, `"2025-03-01"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"03/01/2025"`), &d))
}
