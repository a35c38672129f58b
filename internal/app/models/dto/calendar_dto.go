package dto

import "time"

// BusySlot is an occupied consultation window
type BusySlot struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay,omitempty"`
}

// AvailabilityResponse lists busy windows in [From, To)
type AvailabilityResponse struct {
	From time.Time  `json:"from"`
	To   time.Time  `json:"to"`
	Busy []BusySlot `json:"busy"`
}
