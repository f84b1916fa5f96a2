package models

import "time"

// Facts is the crawler-supplied snapshot of a node's observable state. This
// service only reads it; the crawler collaborator owns the observations.
type Facts struct {
	NodeID           string    `json:"node_id"`
	IP               string    `json:"ip"`
	UserAgent        string    `json:"user_agent"`
	Reachable        bool      `json:"reachable"`
	UptimePercentage float64   `json:"uptime_percentage"`
	Version          string    `json:"version"`
	TipsEnabled      bool      `json:"tips_enabled"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
}

// Observation is one crawler event about a node.
type Observation struct {
	NodeID           string    `json:"node_id"`
	IP               string    `json:"ip"`
	UserAgent        string    `json:"user_agent"`
	PortReachable    bool      `json:"port_reachable"`
	UptimePercentage float64   `json:"uptime_percentage"`
	Version          string    `json:"version"`
	TipsEnabled      bool      `json:"tips_enabled"`
	HTTPFileContent  string    `json:"http_file_content,omitempty"`
	LastSeenAt       time.Time `json:"last_seen_at"`
}
