package errorx

import "net/http"

type Kind int

const (
	Internal Kind = iota
	InsufficientFunds
	DrawNotActive
	NoEntries
	AlreadyClaimed
	NotAWinner
	TasksIncomplete
	NotFound
	ConcurrentModification
	ValidationError
	UserInactive
)

var kindMessages = map[Kind]string{
	Internal:               "Request failed",
	InsufficientFunds:      "Insufficient balance",
	DrawNotActive:          "Draw is not accepting entries",
	NoEntries:              "Draw has no entries",
	AlreadyClaimed:         "Already claimed",
	NotAWinner:             "Ticket is not a winner in this draw",
	TasksIncomplete:        "Complete all tasks before claiming your reward",
	NotFound:               "Not found",
	ConcurrentModification: "Resource is busy, try again",
	ValidationError:        "Invalid request",
	UserInactive:           "Account is inactive",
}

var kindStatus = map[Kind]int{
	Internal:               http.StatusInternalServerError,
	InsufficientFunds:      http.StatusPaymentRequired,
	DrawNotActive:          http.StatusConflict,
	NoEntries:              http.StatusUnprocessableEntity,
	AlreadyClaimed:         http.StatusConflict,
	NotAWinner:             http.StatusForbidden,
	TasksIncomplete:        http.StatusUnprocessableEntity,
	NotFound:               http.StatusNotFound,
	ConcurrentModification: http.StatusConflict,
	ValidationError:        http.StatusBadRequest,
	UserInactive:           http.StatusForbidden,
}

var kindNames = map[Kind]string{
	Internal:               "Internal",
	InsufficientFunds:      "InsufficientFunds",
	DrawNotActive:          "DrawNotActive",
	NoEntries:              "NoEntries",
	AlreadyClaimed:         "AlreadyClaimed",
	NotAWinner:             "NotAWinner",
	TasksIncomplete:        "TasksIncomplete",
	NotFound:               "NotFound",
	ConcurrentModification: "ConcurrentModification",
	ValidationError:        "ValidationError",
	UserInactive:           "UserInactive",
}

func (k Kind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[Internal]
}

func (k Kind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[Internal]
}
