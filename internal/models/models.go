package models

import "time"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
)

// UnknownHosting is stored when the IP resolved but the organisation lookup did not.
const UnknownHosting = "Unknown"

type Certificate struct {
	Valid         bool   `json:"valid" example:"true"`
	DaysRemaining int    `json:"days_remaining" example:"45"`
	ValidTo       string `json:"valid_to" example:"2025-03-01T12:00:00Z"`
	AlertSent30   bool   `json:"alert_sent_30" example:"false"`
	AlertSent10   bool   `json:"alert_sent_10" example:"false"`
}

type Target struct {
	ID             string       `json:"id" example:"5f0c6c8e-3a8f-4e0e-9d1c-6c1f3c0c9b11"`
	URL            string       `json:"url" example:"https://example.com"`
	Status         Status       `json:"status" example:"UP"`
	ResponseTimeMS int          `json:"response_time_ms" example:"150"`
	Certificate    *Certificate `json:"certificate,omitempty"`
	DomainExpiry   string       `json:"domain_expiry,omitempty" example:"2026-08-13T04:00:00Z"`
	IPAddress      string       `json:"ip_address,omitempty" example:"93.184.216.34"`
	Hosting        string       `json:"hosting,omitempty" example:"Edgecast Inc."`
	LastChecked    time.Time    `json:"last_checked"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Clone returns a deep copy so the reconciler can mutate freely against a snapshot.
func (t Target) Clone() Target {
	if t.Certificate != nil {
		c := *t.Certificate
		t.Certificate = &c
	}
	return t
}

// TargetChanges carries only the fields that changed in a cycle; nil means unchanged.
type TargetChanges struct {
	Status         *Status
	ResponseTimeMS *int
	Certificate    *Certificate
	DomainExpiry   *string
	IPAddress      *string
	Hosting        *string
	LastChecked    *time.Time
}

// Empty reports whether no persisted field changed.
func (c TargetChanges) Empty() bool {
	return c.Status == nil &&
		c.ResponseTimeMS == nil &&
		c.Certificate == nil &&
		c.DomainExpiry == nil &&
		c.IPAddress == nil &&
		c.Hosting == nil &&
		c.LastChecked == nil
}

type AlertKind string

const (
	AlertStatusDown AlertKind = "status-down"
	AlertStatusUp   AlertKind = "status-up"
	AlertSSLTier30  AlertKind = "ssl-tier30"
	AlertSSLTier10  AlertKind = "ssl-tier10"
)

type Alert struct {
	Kind          AlertKind `json:"kind" example:"status-down"`
	TargetID      string    `json:"target_id"`
	URL           string    `json:"url" example:"https://example.com"`
	DaysRemaining int       `json:"days_remaining,omitempty" example:"25"`
	At            time.Time `json:"at"`
}

type CycleSummary struct {
	TargetsChecked int           `json:"targets_checked" example:"12"`
	AlertsSent     int           `json:"alerts_sent" example:"1"`
	Errors         int           `json:"errors" example:"0"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
}
