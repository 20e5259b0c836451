package models

import "time"

// AuditLog records a mutation or read of a vault entity.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string                 `json:"userId" firestore:"userId"`
	Action     string                 `json:"action" firestore:"action"` // e.g. "KEY_CREATE", "KEY_ACCESS", "FOLDER_DELETE"
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty" firestore:"ipAddress,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty" firestore:"userAgent,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}

// AccessLog records an authorization decision (grant or deny). It is a
// write-only side channel: failures to record never block the decision.
type AccessLog struct {
	ID           string                 `json:"id" firestore:"-"`
	Timestamp    time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID       string                 `json:"userId" firestore:"userId"`
	Action       string                 `json:"action" firestore:"action"` // "access_granted" | "access_denied"
	ResourceType string                 `json:"resourceType,omitempty" firestore:"resourceType,omitempty"`
	ResourceID   string                 `json:"resourceId,omitempty" firestore:"resourceId,omitempty"`
	Permissions  []string               `json:"permissions,omitempty" firestore:"permissions,omitempty"`
	Result       string                 `json:"result" firestore:"result"` // "success" | "denied"
	IPAddress    string                 `json:"ipAddress,omitempty" firestore:"ipAddress,omitempty"`
	UserAgent    string                 `json:"userAgent,omitempty" firestore:"userAgent,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty"`
}
