// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
)

// Error codes carried in {"type":"error"} messages that are not game.ErrorKind values.
const (
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)
