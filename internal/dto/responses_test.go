package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadCountResponse_JSONKey(t *testing.T) {
	raw, err := json.Marshal(UnreadCountResponse{Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"unreadCount": 3}`, string(raw))
}
