package errorx

// Sentinels for errors.Is comparisons.
var (
	ErrInternal               = &Error{Kind: Internal, Message: Internal.Message()}
	ErrInsufficientFunds      = &Error{Kind: InsufficientFunds, Message: InsufficientFunds.Message()}
	ErrDrawNotActive          = &Error{Kind: DrawNotActive, Message: DrawNotActive.Message()}
	ErrNoEntries              = &Error{Kind: NoEntries, Message: NoEntries.Message()}
	ErrAlreadyClaimed         = &Error{Kind: AlreadyClaimed, Message: AlreadyClaimed.Message()}
	ErrNotAWinner             = &Error{Kind: NotAWinner, Message: NotAWinner.Message()}
	ErrTasksIncomplete        = &Error{Kind: TasksIncomplete, Message: TasksIncomplete.Message()}
	ErrNotFound               = &Error{Kind: NotFound, Message: NotFound.Message()}
	ErrConcurrentModification = &Error{Kind: ConcurrentModification, Message: ConcurrentModification.Message()}
	ErrValidation             = &Error{Kind: ValidationError, Message: ValidationError.Message()}
	ErrUserInactive           = &Error{Kind: UserInactive, Message: UserInactive.Message()}
)
