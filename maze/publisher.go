package maze

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PosePayload is published retained on <prefix>/pose
type PosePayload struct {
	SessionID string       `json:"sessionId"`
	X         int          `json:"x"`
	Y         int          `json:"y"`
	Direction Direction    `json:"direction"`
	Ways      Availability `json:"ways"`
	Mode      Mode         `json:"mode"`
	Timestamp int64        `json:"timestamp"`
}

// TreePayload is published retained on <prefix>/tree
type TreePayload struct {
	SessionID string `json:"sessionId"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Orphans   int    `json:"orphans"`
	Current   string `json:"current,omitempty"`
	Complete  bool   `json:"complete"`
	Timestamp int64  `json:"timestamp"`
}

// StatePublisher mirrors session snapshots to MQTT. OnSnapshot only queues the
// latest snapshot; Run does the publishing so the session loop never waits on
// the broker.
type StatePublisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	pending       chan Snapshot
}

// NewStatePublisher creates a publisher. If client is nil, publishing is disabled.
func NewStatePublisher(client mqtt.Client, prefix string) *StatePublisher {
	if prefix == "" {
		prefix = "mazetrack"
	}
	return &StatePublisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true,
		pending:       make(chan Snapshot, 1),
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *StatePublisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// OnSnapshot queues s, replacing any snapshot not yet published
func (p *StatePublisher) OnSnapshot(s Snapshot) {
	for {
		select {
		case p.pending <- s:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run publishes queued snapshots until ctx is done
func (p *StatePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-p.pending:
			if err := p.Publish(s); err != nil {
				log.Printf("[MQTT] State publish failed: %v", err)
			}
		}
	}
}

// Publish sends the pose and tree summaries for s
func (p *StatePublisher) Publish(s Snapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	now := s.UpdatedAt.Unix()
	if s.UpdatedAt.IsZero() {
		now = time.Now().Unix()
	}

	pose := PosePayload{
		SessionID: s.SessionID,
		X:         s.Nav.Pose.X,
		Y:         s.Nav.Pose.Y,
		Direction: s.Nav.Pose.Dir,
		Ways:      s.Nav.Ways,
		Mode:      s.Mode,
		Timestamp: now,
	}
	if err := p.publishJSON("pose", pose); err != nil {
		return err
	}

	tree := TreePayload{
		SessionID: s.SessionID,
		Nodes:     len(s.Tree.Nodes),
		Edges:     len(s.Tree.Edges),
		Orphans:   len(s.Tree.Orphans),
		Current:   s.Tree.Current,
		Complete:  s.Complete,
		Timestamp: now,
	}
	return p.publishJSON("tree", tree)
}

func (p *StatePublisher) publishJSON(suffix string, v any) error {
	topic := fmt.Sprintf("%s/%s", p.publishPrefix, suffix)
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", suffix, err)
	}
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
