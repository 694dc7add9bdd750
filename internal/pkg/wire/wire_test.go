package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePresence(t *testing.T) {
	req := require.New(t)

	msg, err := Decode([]byte(`{"kind":"presence","users":[{"userId":"u1","displayName":"Ada"}]}`))
	req.NoError(err)

	p, ok := msg.(PresenceMessage)
	req.True(ok)
	req.Len(p.Users, 1)
	req.Equal("Ada", p.Users[0].DisplayName)
}

func TestDecodeTaskCreated(t *testing.T) {
	req := require.New(t)

	msg, err := Decode([]byte(`{
		"kind": "task:created",
		"task": {
			"id": "t1", "roomId": "r1", "title": "rollback deploy",
			"status": "open",
			"createdAt": "2026-01-01T00:00:00Z",
			"updatedAt": "2026-01-01T00:00:00Z"
		}
	}`))
	req.NoError(err)

	tc, ok := msg.(TaskCreatedMessage)
	req.True(ok)
	req.Equal("rollback deploy", tc.Task.Title)
	req.Nil(tc.Task.Assignee)
}

func TestDecodeUnknownKind(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"kind":"hello","user":{"userId":"u1","displayName":"Ada"}}`))
	req.ErrorIs(err, ErrUnknownKind)

	_, err = Decode([]byte(`{"kind":""}`))
	req.ErrorIs(err, ErrUnknownKind)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"kind":"error","message":"boom","extra":1}`))
	req.Error(err)
}

func TestDecodeRejectsConstraintViolations(t *testing.T) {
	req := require.New(t)

	// status outside the enum
	_, err := Decode([]byte(`{
		"kind": "task:updated",
		"task": {
			"id": "t1", "roomId": "r1", "title": "x",
			"status": "paused",
			"createdAt": "2026-01-01T00:00:00Z",
			"updatedAt": "2026-01-01T00:00:00Z"
		}
	}`))
	req.Error(err)

	issues := Issues(err)
	req.NotEmpty(issues)
	req.Equal("Task.Status", issues[0].Path)
}

func TestDecodeHello(t *testing.T) {
	req := require.New(t)

	user, err := DecodeHello([]byte(`{"kind":"hello","user":{"userId":"u1","displayName":"Ada"}}`))
	req.NoError(err)
	req.Equal("u1", user.UserID)

	_, err = DecodeHello([]byte(`{"kind":"presence"}`))
	req.Error(err)

	_, err = DecodeHello([]byte(`{"kind":"hello","user":{"userId":"","displayName":"Ada"}}`))
	req.Error(err)
}

func TestIssuesNonValidationError(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{`))
	req.Error(err)

	issues := Issues(err)
	req.Len(issues, 1)
	req.Empty(issues[0].Path)
}

func TestPresenceMessageNeverNilUsers(t *testing.T) {
	msg := NewPresenceMessage(nil)
	require.NotNil(t, msg.Users)
	require.Empty(t, msg.Users)
}
