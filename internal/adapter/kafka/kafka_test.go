package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-aoi-notifier/internal/config"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	n := domain.Notification{
		AOI:         "Lake Merritt",
		Subject:     domain.SubjectIncidents,
		Body:        "Lake Merritt",
		Matches:     []domain.Match{{MarkerSymbol: "1"}, {MarkerSymbol: "2"}},
		GeneratedAt: now,
	}

	msg, err := serializeToMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte("Lake Merritt"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "aoi", msg.Headers[0].Key)
	assert.Equal(t, []byte("Lake Merritt"), msg.Headers[0].Value)
	assert.Equal(t, "match_count", msg.Headers[1].Key)
	assert.Equal(t, []byte("2"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var p domain.Payload
	require.NoError(t, json.Unmarshal(msg.Value, &p))
	assert.Equal(t, "Lake Merritt", p.AOI)
	assert.Equal(t, 2, p.MatchCount)
	assert.Equal(t, "<p>Lake Merritt</p>", p.HTML)
}

func TestSerializeToMessage_NoIncidents(t *testing.T) {
	msg, err := serializeToMessage(domain.Notification{AOI: "Quiet", Subject: "No incidents for Quiet", Body: "Quiet"})
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), msg.Headers[1].Value)
	assert.Contains(t, string(msg.Value), `"matches":[]`)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "aoi-notifications"}, nil)
	assert.Equal(t, "aoi-notifications", w.writer.Topic)
	assert.Equal(t, "kafka", w.Name())
	require.NoError(t, w.Close())
}
