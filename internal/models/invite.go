package models

import "time"

// Invite links a grantor to a grantee for one assessment slot.
type Invite struct {
	ID           string       `json:"id"`
	GrantorID    string       `json:"grantorId"`
	GranteeID    string       `json:"granteeId"`
	Structure    StructureKey `json:"structure"`
	TemplateCode string       `json:"templateCode,omitempty"`
	DateInvited  time.Time    `json:"dateInvited"`
	InvitedBy    string       `json:"invitedBy"`
	Active       bool         `json:"active"`
}

// AuditEntry is one audit log line.
type AuditEntry struct {
	Time      time.Time `json:"time"`
	Actor     string    `json:"userId"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Note      string    `json:"details,omitempty"`
	Structure string    `json:"structure,omitempty"`
}

// Role is the portal role carried by a session.
type Role string

const (
	RoleGrantee Role = "grantee"
	RoleGrantor Role = "grantor"
	RoleAdmin   Role = "admin"
)

// Session is the explicit caller context handed to core operations.
type Session struct {
	UserID string
	Role   Role
	Email  string
}
