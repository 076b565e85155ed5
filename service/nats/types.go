package nats

import (
	"strings"
	"time"

	"github.com/brojonat/solplay/service/db"
)

// ActivityEvent is a playground action published to NATS.
// It is published to the subject "playground.{kind}" in JetStream.
type ActivityEvent struct {
	ID        int64  `json:"id,omitempty"`
	Kind      string `json:"kind"`
	Network   string `json:"network"`
	Address   string `json:"address"`
	Signature string `json:"signature,omitempty"`
	Lamports  int64  `json:"lamports"`

	ExplorerURL string         `json:"explorer_url,omitempty"`
	Detail      map[string]any `json:"detail,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the JetStream subject the event is published to.
func (e *ActivityEvent) Subject() string {
	return SubjectForKind(e.Kind)
}

// SubjectForKind maps an activity kind onto a single subject token under
// SubjectPrefix. An empty kind matches every activity.
func SubjectForKind(kind string) string {
	if kind == "" {
		return StreamSubjects
	}
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, kind)
	return SubjectPrefix + "." + token
}

// FromActivity converts a stored activity to an ActivityEvent for publishing.
func FromActivity(a *db.Activity, explorerURL string) *ActivityEvent {
	return &ActivityEvent{
		ID:          a.ID,
		Kind:        a.Kind,
		Network:     a.Network,
		Address:     a.Address,
		Signature:   a.Signature,
		Lamports:    a.Lamports,
		ExplorerURL: explorerURL,
		Detail:      a.Detail,
		CreatedAt:   a.CreatedAt,
		PublishedAt: time.Now().UTC(),
	}
}
