package types

import "time"

// StatusField names which view status changed
type StatusField string

const (
	FieldConnection StatusField = "connection"
	FieldLogin      StatusField = "login"
	FieldLifecycle  StatusField = "lifecycle"
)

// StatusEvent is emitted at most once per observed transition and
// consumed by the host UI layer.
type StatusEvent struct {
	AccountID string      `json:"account_id"`
	Field     StatusField `json:"field"`
	Old       string      `json:"old"`
	New       string      `json:"new"`
	At        time.Time   `json:"at"`
}
