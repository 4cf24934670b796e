package models

import "time"

// CmdRequest is the payload of a message on the command topic.
type CmdRequest struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// CmdResponse is published on the response topic after a command has
// been handled.
type CmdResponse struct {
	DeviceID  string    `json:"device_id"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Power     string    `json:"power"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
