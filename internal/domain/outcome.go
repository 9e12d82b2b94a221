package domain

// SendOutcome is the terminal classification of one recipient's attempt.
type SendOutcome int

const (
	OutcomeSent SendOutcome = iota
	OutcomeSkippedInvalidNumber
	OutcomeSkippedFormatError
	OutcomeFailedTimeoutChatLoad
	OutcomeFailedTimeoutSendControl
	OutcomeFailedPopupInvalidNumber
	OutcomeFailedUnexpectedError
)

// AllOutcomes lists every outcome in declaration order.
var AllOutcomes = []SendOutcome{
	OutcomeSent,
	OutcomeSkippedInvalidNumber,
	OutcomeSkippedFormatError,
	OutcomeFailedTimeoutChatLoad,
	OutcomeFailedTimeoutSendControl,
	OutcomeFailedPopupInvalidNumber,
	OutcomeFailedUnexpectedError,
}

var outcomeNames = map[SendOutcome]string{
	OutcomeSent:                     "sent",
	OutcomeSkippedInvalidNumber:     "skipped_invalid_number",
	OutcomeSkippedFormatError:       "skipped_format_error",
	OutcomeFailedTimeoutChatLoad:    "failed_timeout_chat_load",
	OutcomeFailedTimeoutSendControl: "failed_timeout_send_control",
	OutcomeFailedPopupInvalidNumber: "failed_popup_invalid_number",
	OutcomeFailedUnexpectedError:    "failed_unexpected_error",
}

// Razon_Fallo values written to the failure log.
var outcomeReasons = map[SendOutcome]string{
	OutcomeSkippedInvalidNumber:     "Numero invalido",
	OutcomeSkippedFormatError:       "Error de formato",
	OutcomeFailedTimeoutChatLoad:    "Timeout carga de chat",
	OutcomeFailedTimeoutSendControl: "Timeout boton enviar",
	OutcomeFailedPopupInvalidNumber: "Numero sin WhatsApp (popup)",
	OutcomeFailedUnexpectedError:    "Error inesperado",
}

func (o SendOutcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Failed reports whether the outcome counts as a failure.
func (o SendOutcome) Failed() bool {
	return o != OutcomeSent
}

// Reason returns the failure reason recorded in the failure log.
func (o SendOutcome) Reason() string {
	return outcomeReasons[o]
}

// RecipientResult is the outcome of one recipient plus its diagnostic detail.
type RecipientResult struct {
	Index       int         `json:"index"`
	Numero      string      `json:"numero"`
	DisplayName string      `json:"display_name"`
	Outcome     SendOutcome `json:"outcome"`
	Detail      string      `json:"detail,omitempty"`
}

// FailureLogEntry is one persisted row of the failure log.
type FailureLogEntry struct {
	Numero      string
	DisplayName string
	Reason      string
	Detail      string
}

// NewFailureLogEntry builds the failure log row for a failed result.
func NewFailureLogEntry(res RecipientResult) FailureLogEntry {
	return FailureLogEntry{
		Numero:      res.Numero,
		DisplayName: res.DisplayName,
		Reason:      res.Outcome.Reason(),
		Detail:      res.Detail,
	}
}

// Tally aggregates outcomes as recipients complete.
type Tally struct {
	Sent      int
	Failed    int
	Processed int
}

// Add records one outcome.
func (t *Tally) Add(o SendOutcome) {
	t.Processed++
	if o.Failed() {
		t.Failed++
		return
	}
	t.Sent++
}
