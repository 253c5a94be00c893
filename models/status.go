package models

import "errors"

// StatusKind is the severity of a status event.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusWarning StatusKind = "warning"
	StatusSuccess StatusKind = "success"
)

// LogMessageType is the only message type carried from the page side to the controller.
const LogMessageType = "LOG"

// StatusEvent is emitted by the extractor and consumed by the controller.
type StatusEvent struct {
	Kind    StatusKind
	Message string
}

// Info, Warning and Success build status events of the matching kind.
func Info(msg string) StatusEvent    { return StatusEvent{Kind: StatusInfo, Message: msg} }
func Warning(msg string) StatusEvent { return StatusEvent{Kind: StatusWarning, Message: msg} }
func Success(msg string) StatusEvent { return StatusEvent{Kind: StatusSuccess, Message: msg} }

// LogMessage is the wire shape of a status event:
//
//	{ "type": "LOG", "message": "...", "logType": "info" }
type LogMessage struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	LogType StatusKind `json:"logType"`
}

// ToLogMessage converts the event to its wire shape.
func (e StatusEvent) ToLogMessage() LogMessage {
	return LogMessage{Type: LogMessageType, Message: e.Message, LogType: e.Kind}
}

// ErrorStatus renders err as the warning shown in the session log.
func ErrorStatus(err error) StatusEvent {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return Warning("Error: " + exportErr.UserMessage())
	}
	return Warning("Error: " + err.Error())
}
