package aircall

import "github.com/hugh/go-helpdesk/internal/database/models"

const EventCallEnded = "call.ended"

// ClassifyOutcome derives the call outcome from a single delivery. The first
// matching rule wins.
func ClassifyOutcome(data *CallData, eventType string) models.CallOutcome {
	switch {
	case data.HasVoicemail():
		return models.CallOutcomeVoicemail
	case data.AnsweredAt != nil:
		return models.CallOutcomeAnswered
	case data.MissedCallReason != nil, eventType == EventCallEnded:
		return models.CallOutcomeMissed
	case data.Status != nil && *data.Status == "done" && data.Duration != nil && *data.Duration > 0:
		return models.CallOutcomeAnswered
	}
	return models.CallOutcomeUnknown
}

// MapDirection maps "inbound" to INBOUND and everything else to OUTBOUND.
func MapDirection(direction *string) models.CallDirection {
	if direction != nil && *direction == "inbound" {
		return models.CallDirectionInbound
	}
	return models.CallDirectionOutbound
}
