package aircall

import (
	"encoding/json"
	"testing"

	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name  string
		data  CallData
		event string
		want  models.CallOutcome
	}{
		{
			name:  "voicemail wins over answered",
			data:  CallData{Voicemail: json.RawMessage(`"https://vm.example/1.mp3"`), AnsweredAt: ptr(int64(10))},
			event: EventCallEnded,
			want:  models.CallOutcomeVoicemail,
		},
		{
			name: "null voicemail is absent",
			data: CallData{Voicemail: json.RawMessage(`null`), AnsweredAt: ptr(int64(10))},
			want: models.CallOutcomeAnswered,
		},
		{
			name: "empty voicemail is absent",
			data: CallData{Voicemail: json.RawMessage(`""`), AnsweredAt: ptr(int64(10))},
			want: models.CallOutcomeAnswered,
		},
		{
			name:  "answered",
			data:  CallData{AnsweredAt: ptr(int64(10))},
			event: EventCallEnded,
			want:  models.CallOutcomeAnswered,
		},
		{
			name:  "missed reason",
			data:  CallData{MissedCallReason: ptr("no_available_agent")},
			event: "call.hungup",
			want:  models.CallOutcomeMissed,
		},
		{
			name:  "ended without answer",
			data:  CallData{Status: ptr("done"), Duration: ptr(int64(30))},
			event: EventCallEnded,
			want:  models.CallOutcomeMissed,
		},
		{
			name:  "done with duration",
			data:  CallData{Status: ptr("done"), Duration: ptr(int64(30))},
			event: "call.hungup",
			want:  models.CallOutcomeAnswered,
		},
		{
			name:  "done without duration",
			data:  CallData{Status: ptr("done"), Duration: ptr(int64(0))},
			event: "call.hungup",
			want:  models.CallOutcomeUnknown,
		},
		{
			name:  "created",
			data:  CallData{Status: ptr("initial")},
			event: "call.created",
			want:  models.CallOutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyOutcome(&tt.data, tt.event))
		})
	}
}

func TestMapDirection(t *testing.T) {
	assert.Equal(t, models.CallDirectionInbound, MapDirection(ptr("inbound")))
	assert.Equal(t, models.CallDirectionOutbound, MapDirection(ptr("outbound")))
	assert.Equal(t, models.CallDirectionOutbound, MapDirection(ptr("Inbound")))
	assert.Equal(t, models.CallDirectionOutbound, MapDirection(nil))
}
