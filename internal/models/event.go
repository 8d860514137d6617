package models

import "time"

type EventType string

const (
	EventShiftOpened EventType = "shift.opened"
	EventShiftClosed EventType = "shift.closed"
)

// ShiftEvent is pushed to branch subscribers after a shift changes state.
type ShiftEvent struct {
	Type     EventType    `json:"type"`
	BranchID string       `json:"branchId"`
	ShiftID  string       `json:"shiftId"`
	At       time.Time    `json:"at"`
	Shift    *Shift       `json:"shift,omitempty"`
	Result   *CloseResult `json:"result,omitempty"`
}
