package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	Op  string `json:"op"`
	Key string `json:"key"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[change]([]byte(`{"op":"added","key":"m1"}`))
	require.NoError(t, err)
	assert.Equal(t, change{Op: "added", Key: "m1"}, got)

	_, err = DecodeJSON[change]([]byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding kafka message")
}

func TestEncodeEvents(t *testing.T) {
	msgs, err := encodeEvents([]Event{
		{Key: "m1", Value: change{Op: "added", Key: "m1"}},
		{Key: "m2", Value: change{Op: "removed", Key: "m2"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", string(msgs[0].Key))
	assert.JSONEq(t, `{"op":"removed","key":"m2"}`, string(msgs[1].Value))

	_, err = encodeEvents([]Event{{Key: "bad", Value: make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}
