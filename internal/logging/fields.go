package logging

// Standard attribute keys. Components use these instead of ad-hoc strings so
// log lines stay greppable across the pipeline.
const (
	FieldComponent = "component"
	FieldTask      = "task"
	FieldStage     = "stage"
	FieldLink      = "link"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)
