package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
)

func TestKafka_UniqueGroupPerFeed(t *testing.T) {
	cfg := config.KafkaConfig{ConsumerGroup: "spotlight-group"}
	a := NewKafka(cfg, "gmail", "gmail-changes")
	b := NewKafka(cfg, "gmail", "gmail-changes")
	assert.Contains(t, a.groupID, "spotlight-group-gmail-")
	assert.NotEqual(t, a.groupID, b.groupID)
}

func TestKafka_HandlerDecodesChange(t *testing.T) {
	k := NewKafka(config.KafkaConfig{}, "gmail", "gmail-changes")
	var got []Change
	h := k.handler(func(c Change) { got = append(got, c) })

	require.NoError(t, h(context.Background(), []byte("m1"), []byte(`{"op":"added","key":"m1","record":{"subject":"Hi"}}`)))
	require.NoError(t, h(context.Background(), []byte("m2"), []byte(`{"op":"removed"}`)))
	require.NoError(t, h(context.Background(), []byte("bad"), []byte(`not json`)))

	require.Len(t, got, 2)
	assert.Equal(t, OpAdded, got[0].Op)
	assert.JSONEq(t, `{"subject":"Hi"}`, string(got[0].Record))
	assert.Equal(t, "m2", got[1].Key, "falls back to the message key")
}
