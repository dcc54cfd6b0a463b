package wizard

import "fmt"

type Step int

const (
	StepVehicleInfo Step = iota + 1
	StepQuestionnaire
	StepPhotos
	StepConferente
	StepReview
	StepSignature
)

const TotalSteps = 6

func (s Step) String() string {
	switch s {
	case StepVehicleInfo:
		return "vehicle_info"
	case StepQuestionnaire:
		return "questionnaire"
	case StepPhotos:
		return "photos"
	case StepConferente:
		return "conferente"
	case StepReview:
		return "review"
	case StepSignature:
		return "signature"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) Valid() bool {
	return s >= StepVehicleInfo && s <= StepSignature
}
