package network

// 客户端命令
const (
	MsgTypeHeartbeat   = 1
	MsgTypeCreateRoom  = 101
	MsgTypeJoinRoom    = 102
	MsgTypeLeaveRoom   = 103
	MsgTypeSetQuestion = 104
	MsgTypeStartRound  = 105
	MsgTypeSubmitGuess = 106
)

// 服务端回复与事件
const (
	MsgTypeError         = 201
	MsgTypeGuessResult   = 202
	MsgTypeRosterChanged = 301
	MsgTypeChatChanged   = 302
	MsgTypeRoundStarted  = 303
	MsgTypeRoundWon      = 304
	MsgTypeRoundTimedOut = 305
)
