package notifications

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"paperflow/internal/models"
	"paperflow/internal/observability"
)

// Notifier publishes workflow events into Redis channels. It implements
// service.EventPublisher: every method is fire-and-forget, failures are
// logged and counted but never returned to the caller.
type Notifier struct {
	rdb *redis.Client
	now func() time.Time
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client yields a notifier that silently drops everything.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, now: time.Now}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "workflow:user:" + strconv.FormatUint(uint64(userID), 10)
}

// BroadcastChannel is the channel carrying events relevant to every
// connected dashboard.
const BroadcastChannel = "workflow:broadcast"

// StageAssigned notifies the stage's assigned user, or broadcasts to the
// role's dashboard when no specific user is assigned.
func (n *Notifier) StageAssigned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage) {
	ev := Event{
		Type:           EventStageAssigned,
		PaperID:        paper.ID,
		TrackingNumber: paper.TrackingNumber,
		Title:          paper.Title,
		StageName:      stage.StageName,
		Role:           string(stage.AssignedRole),
		Deadline:       stage.Deadline,
		EmittedAt:      n.now(),
	}
	if stage.AssignedUserID != nil {
		n.publishUser(ctx, *stage.AssignedUserID, ev)
		return
	}
	n.publishBroadcast(ctx, ev)
}

// StageOverdue broadcasts a deadline breach so role dashboards can surface it.
func (n *Notifier) StageOverdue(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage) {
	ev := Event{
		Type:           EventStageOverdue,
		PaperID:        paper.ID,
		TrackingNumber: paper.TrackingNumber,
		Title:          paper.Title,
		StageName:      stage.StageName,
		Role:           string(stage.AssignedRole),
		Deadline:       stage.Deadline,
		EmittedAt:      n.now(),
	}
	n.publishBroadcast(ctx, ev)
	if stage.AssignedUserID != nil {
		n.publishUser(ctx, *stage.AssignedUserID, ev)
	}
}

// PaperCompleted notifies the requisitioner that their paper cleared the
// final stage.
func (n *Notifier) PaperCompleted(ctx context.Context, paper *models.ConceptPaper) {
	ev := Event{
		Type:           EventPaperCompleted,
		PaperID:        paper.ID,
		TrackingNumber: paper.TrackingNumber,
		Title:          paper.Title,
		EmittedAt:      n.now(),
	}
	n.publishUser(ctx, paper.RequisitionerID, ev)
}

// PaperReturned notifies the reopened stage's owner with the reviewer's
// remarks.
func (n *Notifier) PaperReturned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage, remarks string) {
	ev := Event{
		Type:           EventPaperReturned,
		PaperID:        paper.ID,
		TrackingNumber: paper.TrackingNumber,
		Title:          paper.Title,
		StageName:      stage.StageName,
		Role:           string(stage.AssignedRole),
		Remarks:        remarks,
		Deadline:       stage.Deadline,
		EmittedAt:      n.now(),
	}
	if stage.AssignedUserID != nil {
		n.publishUser(ctx, *stage.AssignedUserID, ev)
	}
	n.publishUser(ctx, paper.RequisitionerID, ev)
}

// StageReassigned notifies both the new and the previous assignee.
func (n *Notifier) StageReassigned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage, previousUserID *uint) {
	ev := Event{
		Type:           EventStageReassigned,
		PaperID:        paper.ID,
		TrackingNumber: paper.TrackingNumber,
		Title:          paper.Title,
		StageName:      stage.StageName,
		Role:           string(stage.AssignedRole),
		Deadline:       stage.Deadline,
		PreviousUserID: previousUserID,
		EmittedAt:      n.now(),
	}
	if stage.AssignedUserID != nil {
		n.publishUser(ctx, *stage.AssignedUserID, ev)
	}
	if previousUserID != nil {
		n.publishUser(ctx, *previousUserID, ev)
	}
}

func (n *Notifier) publishUser(ctx context.Context, userID uint, ev Event) {
	if n.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		observability.LogNotificationError(ctx, ev.Type, err)
		observability.NotificationPublishErrors.WithLabelValues(ev.Type).Inc()
		return
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), string(payload)).Err(); err != nil {
		observability.LogNotificationError(ctx, ev.Type, err)
		observability.NotificationPublishErrors.WithLabelValues(ev.Type).Inc()
	}
}

func (n *Notifier) publishBroadcast(ctx context.Context, ev Event) {
	if n.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		observability.LogNotificationError(ctx, ev.Type, err)
		observability.NotificationPublishErrors.WithLabelValues(ev.Type).Inc()
		return
	}
	if err := n.rdb.Publish(ctx, BroadcastChannel, string(payload)).Err(); err != nil {
		observability.LogNotificationError(ctx, ev.Type, err)
		observability.NotificationPublishErrors.WithLabelValues(ev.Type).Inc()
	}
}

// StartPatternSubscriber subscribes to `workflow:user:*` and the broadcast
// channel and calls onMessage for each incoming message. onMessage receives
// channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "workflow:user:*", BroadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
