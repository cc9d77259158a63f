// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// Metadata keys set on every published activity message.
const (
	MetadataEvent         = "event"
	MetadataCorrelationID = "correlation_id"
)

// Reporter publishes user actions to the activity topic. A nil *Reporter is
// valid and drops everything.
type Reporter struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

// NewReporter returns a Reporter publishing to topic.
func NewReporter(publisher message.Publisher, topic string) *Reporter {
	return &Reporter{
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
	}
}

// Report records that user performed event, optionally within team. Nothing
// is published when user is nil. Failures are logged; callers never see them.
func (r *Reporter) Report(ctx context.Context, user *models.User, team *models.Team, event string, props map[string]interface{}) {
	if r == nil || user == nil {
		return
	}

	ev := &models.ActivityEvent{
		ID:            uuid.New(),
		Timestamp:     r.now().UTC(),
		Event:         event,
		UserID:        user.ID,
		DistinctID:    user.DistinctID,
		Properties:    props,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
	if team != nil {
		teamID := team.ID
		orgID := team.OrganizationID
		ev.TeamID = &teamID
		ev.OrganizationID = &orgID
	}

	err := r.publish(ev)
	metrics.RecordActivityPublish(event, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", event).Int64("user_id", user.ID).
			Msg("failed to report activity")
	}
}

func (r *Reporter) publish(ev *models.ActivityEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	msg := message.NewMessage(ev.ID.String(), payload)
	msg.Metadata.Set(MetadataEvent, ev.Event)
	if ev.CorrelationID != "" {
		msg.Metadata.Set(MetadataCorrelationID, ev.CorrelationID)
	}
	if err := r.publisher.Publish(r.topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", r.topic, err)
	}
	return nil
}
