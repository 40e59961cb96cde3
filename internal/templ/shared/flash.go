package shared

import "github.com/DukeRupert/pbgate/internal/domain"

// FlashType selects the styling of a flash message.
type FlashType string

const (
	FlashSuccess FlashType = "success"
	FlashError   FlashType = "error"
	FlashWarning FlashType = "warning"
	FlashInfo    FlashType = "info"
)

// Flash is a one-off message shown above a form.
type Flash struct {
	Type    FlashType
	Message string
}

// FlashFromState turns an action result into a flash, or nil when there is
// nothing to say.
func FlashFromState(state domain.FormState) *Flash {
	switch {
	case state.Error != "":
		return &Flash{Type: FlashError, Message: state.Error}
	case state.Success && state.Message != "":
		return &Flash{Type: FlashSuccess, Message: state.Message}
	default:
		return nil
	}
}

func (t FlashType) classes() string {
	switch t {
	case FlashSuccess:
		return "border-green-200 bg-green-50 text-green-800"
	case FlashError:
		return "border-red-200 bg-red-50 text-red-800"
	case FlashWarning:
		return "border-yellow-200 bg-yellow-50 text-yellow-800"
	default:
		return "border-blue-200 bg-blue-50 text-blue-800"
	}
}
