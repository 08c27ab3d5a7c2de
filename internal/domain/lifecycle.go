package domain

import (
	"errors"
	"fmt"
	"sort"
)

type SlotState string

const (
	StateEmpty     SlotState = "EMPTY"
	StateParked    SlotState = "PARKED"
	StateRequested SlotState = "REQUESTED"
	StateReady     SlotState = "READY"
	StateDelivered SlotState = "DELIVERED"
)

// Trigger là hành động làm thay đổi trạng thái chỗ đỗ.
type Trigger string

const (
	TriggerPark       Trigger = "park"
	TriggerRequest    Trigger = "request"
	TriggerMarkReady  Trigger = "mark_ready"
	TriggerEndService Trigger = "end_service"
	TriggerClear      Trigger = "clear"
)

var ErrInvalidTransition = errors.New("chuyển trạng thái không hợp lệ")

// transitions là bảng chuyển trạng thái duy nhất của engine.
// markReady và endService được phép từ mọi trạng thái đang có xe.
var transitions = map[SlotState]map[Trigger]SlotState{
	StateEmpty: {
		TriggerPark:  StateParked,
		TriggerClear: StateEmpty,
	},
	StateParked: {
		TriggerRequest:    StateRequested,
		TriggerMarkReady:  StateReady,
		TriggerEndService: StateDelivered,
		TriggerClear:      StateEmpty,
	},
	StateRequested: {
		TriggerRequest:    StateRequested,
		TriggerMarkReady:  StateReady,
		TriggerEndService: StateDelivered,
		TriggerClear:      StateEmpty,
	},
	StateReady: {
		TriggerMarkReady:  StateReady,
		TriggerEndService: StateDelivered,
		TriggerClear:      StateEmpty,
	},
	StateDelivered: {
		TriggerPark:  StateParked,
		TriggerClear: StateEmpty,
	},
}

// AllStates liệt kê các trạng thái theo thứ tự vòng đời.
func AllStates() []SlotState {
	return []SlotState{StateEmpty, StateParked, StateRequested, StateReady, StateDelivered}
}

// AllTriggers liệt kê các trigger.
func AllTriggers() []Trigger {
	return []Trigger{TriggerPark, TriggerRequest, TriggerMarkReady, TriggerEndService, TriggerClear}
}

// Next trả về trạng thái đích, hoặc ErrInvalidTransition.
func Next(from SlotState, t Trigger) (SlotState, error) {
	if to, ok := transitions[from][t]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: %s từ %s", ErrInvalidTransition, t, from)
}

// SortForDisplay đưa các slot REQUESTED lên đầu, giữ nguyên thứ tự tương đối còn lại.
func SortForDisplay(records []SlotRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Status == StatusRequested && records[j].Status != StatusRequested
	})
}
