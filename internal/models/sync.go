package models

import "time"

// SyncAction is what a sync attempt did
type SyncAction string

const (
	SyncPushed   SyncAction = "pushed"
	SyncLinked   SyncAction = "linked"
	SyncPulled   SyncAction = "pulled"
	SyncCreated  SyncAction = "created"
	SyncArchived SyncAction = "archived"
	SyncDemoted  SyncAction = "demoted"
	SyncSkipped  SyncAction = "skipped"
	SyncFailed   SyncAction = "failed"
)

// SyncOutcome is the observable result of one sync attempt. Mutated is set
// when the local entity was changed and has to be persisted again.
type SyncOutcome struct {
	Entity   string     `json:"entity" bson:"entity"`
	EntityID string     `json:"entity_id" bson:"entity_id"`
	RemoteID string     `json:"remote_id,omitempty" bson:"remote_id,omitempty"`
	Action   SyncAction `json:"action" bson:"action"`
	Reason   string     `json:"reason,omitempty" bson:"reason,omitempty"`
	Mutated  bool       `json:"-" bson:"-"`
	At       time.Time  `json:"at" bson:"at"`
}
