package models

import "time"

// Method identifies how an operator proves control of a node.
type Method string

const (
	MethodMessageSign   Method = "message_sign"
	MethodUserAgent     Method = "user_agent"
	MethodPortChallenge Method = "port_challenge"
	MethodDNSTxt        Method = "dns_txt"
	MethodHTTPFile      Method = "http_file"
)

// Interactive reports whether the proof is submitted by the operator.
// Non-interactive methods are resolved by crawler observations.
func (m Method) Interactive() bool {
	return m == MethodMessageSign || m == MethodDNSTxt
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodMessageSign, MethodUserAgent, MethodPortChallenge, MethodDNSTxt, MethodHTTPFile:
		return true
	}
	return false
}

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusFailed          Status = "failed"
	StatusExpired         Status = "expired"
	StatusCancelled       Status = "cancelled"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Challenge is a single verification attempt binding a node, a requester, a
// method and an unguessable token.
type Challenge struct {
	ID            string     `json:"id"`
	NodeID        string     `json:"node_id"`
	RequesterID   int64      `json:"requester_id"`
	Method        Method     `json:"method"`
	Token         string     `json:"token"`
	Status        Status     `json:"status"`
	Proof         string     `json:"proof,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

// Expired reports whether the challenge's validity window has passed.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// VerifiedBinding is the durable record of a node's confirmed owner. At most
// one exists per node; the first approval wins.
type VerifiedBinding struct {
	NodeID      string    `json:"node_id"`
	RequesterID int64     `json:"requester_id"`
	Method      Method    `json:"method"`
	VerifiedAt  time.Time `json:"verified_at"`
}

// InitiateRequest starts a verification attempt.
// @Description Request to start node ownership verification
type InitiateRequest struct {
	NodeID string `json:"node_id" binding:"required" example:"203.0.113.7:8333"`
	Method Method `json:"method" binding:"required" example:"message_sign"`
}

// InitiateResponse carries the issued challenge back to the operator.
// @Description Issued challenge with operator instructions
type InitiateResponse struct {
	ChallengeID  string    `json:"challenge_id"`
	Token        string    `json:"token"`
	Instructions string    `json:"instructions"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CompleteRequest submits a proof for an interactive method.
// @Description Proof submission for a pending challenge
type CompleteRequest struct {
	Proof string `json:"proof" example:"1BoatSLRHtKNngkdXEeobR76b53LETtpyT:H9L5yLFjti..."`
}

// StatusResponse reports a challenge's current state.
// @Description Challenge status
type StatusResponse struct {
	ChallengeID string `json:"challenge_id"`
	Status      Status `json:"status"`
	Message     string `json:"message,omitempty"`
}
