package validation

import (
	"testing"

	"ceseminars/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()

	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, configure(v))
	return v
}

func TestCustomTags(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name  string
		value interface{}
		valid bool
	}{
		{"known action", models.MakeupActionRequest{Action: models.ActionApprove}, true},
		{"unknown action", models.MakeupActionRequest{Action: "escalate"}, false},
		{"known method", models.RecordAttendanceRequest{RegistrationID: 1, SessionID: 2, Method: models.MethodQR}, true},
		{"unknown method", models.RecordAttendanceRequest{RegistrationID: 1, SessionID: 2, Method: "fax"}, false},
		{"known period", models.IssueCertificatesRequest{SeminarID: 1, Period: models.SecondHalf, Year: 2026}, true},
		{"unknown period", models.IssueCertificatesRequest{SeminarID: 1, Period: "q3", Year: 2026}, false},
		{"known status", models.UpdateSeminarStatusRequest{Status: models.SeminarArchived}, true},
		{"unknown status", models.UpdateSeminarStatusRequest{Status: "paused"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.value)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(models.IssueCertificatesRequest{Period: "q3", Year: 1990})
	fields := Errors(err)
	require.Len(t, fields, 3)

	byField := make(map[string]string)
	for _, f := range fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "seminar_id is a required field", byField["seminar_id"])
	assert.Equal(t, "period must be first_half or second_half", byField["period"])
	assert.Contains(t, byField["year"], "year must be")

	assert.Nil(t, Errors(assert.AnError))
}
