package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DocumentRef names one source for extraction. Exactly one of Key, URL and
// Text is set.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Key is the object key of an uploaded document.
	Key  string `json:"key,omitempty"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// ExtractMsg asks the worker to extract documents into a graph.
type ExtractMsg struct {
	GraphID       string        `json:"graph_id"`
	CorrelationID string        `json:"correlation_id"`
	Documents     []DocumentRef `json:"documents"`
	// Strict drops triplets that violate the schema.
	Strict bool `json:"strict"`
}

// CommunityMsg asks the worker to build and persist the community summaries
// of a graph. Force discards stored summaries first.
type CommunityMsg struct {
	GraphID       string `json:"graph_id"`
	CorrelationID string `json:"correlation_id"`
	Force         bool   `json:"force"`
}

// GraphEvent is published on the topic exchange when a graph changes.
type GraphEvent struct {
	GraphID       string `json:"graph_id"`
	CorrelationID string `json:"correlation_id"`
	Kind          string `json:"kind"`
	Nodes         int    `json:"nodes,omitempty"`
	Relations     int    `json:"relations,omitempty"`
	Communities   int    `json:"communities,omitempty"`
}

// Topic is the routing key of the event, e.g. "graphs.vn30.communities".
func (e GraphEvent) Topic() string {
	return fmt.Sprintf("graphs.%s.%s", e.GraphID, e.Kind)
}

var errNoGraph = errors.New("message has no graph id")

func (d DocumentRef) validate() error {
	set := 0
	for _, v := range []string{d.Key, d.URL, d.Text} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("document %q must have exactly one of key, url or text", d.ID)
	}
	return nil
}

func decodeExtractMsg(body []byte) (ExtractMsg, error) {
	var msg ExtractMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode extract message: %w", err)
	}
	if msg.GraphID == "" {
		return msg, errNoGraph
	}
	for _, d := range msg.Documents {
		if err := d.validate(); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

func decodeCommunityMsg(body []byte) (CommunityMsg, error) {
	var msg CommunityMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode community message: %w", err)
	}
	if msg.GraphID == "" {
		return msg, errNoGraph
	}
	return msg, nil
}
