package email

const (
	subjectAutomationBlocked  = "Sua automação foi pausada"
	subjectAutomationRestored = "Sua automação foi reativada"
)
