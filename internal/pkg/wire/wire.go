package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Message kinds, discriminating the server→client union.
const (
	KindPresence     = "presence"
	KindEventCreated = "event:created"
	KindTaskCreated  = "task:created"
	KindTaskUpdated  = "task:updated"
	KindChatMessage  = "chat:message"
	KindError        = "error"
)

// ErrUnknownKind rejects envelopes whose kind is not part of the union.
var ErrUnknownKind = errors.New("unknown message kind")

var validate = validator.New()

// Presence identifies one human participant on a live connection.
type Presence struct {
	UserID      string `json:"userId"      validate:"required"`
	DisplayName string `json:"displayName" validate:"required,max=60"`
}

// Hello is the only client→server envelope accepted on a pending slot.
type Hello struct {
	Kind string   `json:"kind" validate:"required,eq=hello"`
	User Presence `json:"user"`
}

// Event is the wire form of a room timeline entry.
type Event struct {
	ID        string   `json:"id"        validate:"required"`
	RoomID    string   `json:"roomId"    validate:"required"`
	Type      string   `json:"type"      validate:"required,oneof=note status link"`
	Message   string   `json:"message"`
	CreatedAt string   `json:"createdAt" validate:"required"`
	Author    Presence `json:"author"`
}

// Task is the wire form of a room task.
type Task struct {
	ID        string  `json:"id"                 validate:"required"`
	RoomID    string  `json:"roomId"             validate:"required"`
	Title     string  `json:"title"              validate:"required"`
	Status    string  `json:"status"             validate:"required,oneof=open done"`
	CreatedAt string  `json:"createdAt"          validate:"required"`
	UpdatedAt string  `json:"updatedAt"          validate:"required"`
	Assignee  *string `json:"assignee,omitempty" validate:"omitempty,min=1,max=60"`
}

// ChatMessage is the wire form of a room chat message.
type ChatMessage struct {
	ID        string   `json:"id"        validate:"required"`
	RoomID    string   `json:"roomId"    validate:"required"`
	Message   string   `json:"message"   validate:"required"`
	CreatedAt string   `json:"createdAt" validate:"required"`
	Author    Presence `json:"author"`
}

// ServerMessage is the discriminated union of every server→client message.
// Variants are value types so they marshal directly onto the socket.
type ServerMessage interface {
	MessageKind() string
}

type PresenceMessage struct {
	Kind  string     `json:"kind"  validate:"required,eq=presence"`
	Users []Presence `json:"users" validate:"dive"`
}

func (PresenceMessage) MessageKind() string { return KindPresence }

// NewPresenceMessage builds a presence snapshot message. Users always
// marshals as an array, never null.
func NewPresenceMessage(users []Presence) PresenceMessage {
	if users == nil {
		users = []Presence{}
	}
	return PresenceMessage{Kind: KindPresence, Users: users}
}

type EventCreatedMessage struct {
	Kind  string `json:"kind" validate:"required,eq=event:created"`
	Event Event  `json:"event"`
}

func (EventCreatedMessage) MessageKind() string { return KindEventCreated }

func NewEventCreatedMessage(event Event) EventCreatedMessage {
	return EventCreatedMessage{Kind: KindEventCreated, Event: event}
}

type TaskCreatedMessage struct {
	Kind string `json:"kind" validate:"required,eq=task:created"`
	Task Task   `json:"task"`
}

func (TaskCreatedMessage) MessageKind() string { return KindTaskCreated }

func NewTaskCreatedMessage(task Task) TaskCreatedMessage {
	return TaskCreatedMessage{Kind: KindTaskCreated, Task: task}
}

type TaskUpdatedMessage struct {
	Kind string `json:"kind" validate:"required,eq=task:updated"`
	Task Task   `json:"task"`
}

func (TaskUpdatedMessage) MessageKind() string { return KindTaskUpdated }

func NewTaskUpdatedMessage(task Task) TaskUpdatedMessage {
	return TaskUpdatedMessage{Kind: KindTaskUpdated, Task: task}
}

type ChatMessageMessage struct {
	Kind    string      `json:"kind" validate:"required,eq=chat:message"`
	Message ChatMessage `json:"message"`
}

func (ChatMessageMessage) MessageKind() string { return KindChatMessage }

func NewChatMessageMessage(message ChatMessage) ChatMessageMessage {
	return ChatMessageMessage{Kind: KindChatMessage, Message: message}
}

type ErrorMessage struct {
	Kind    string `json:"kind"    validate:"required,eq=error"`
	Message string `json:"message" validate:"required"`
}

func (ErrorMessage) MessageKind() string { return KindError }

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Kind: KindError, Message: message}
}

// Decode parses data as a server message, strictly: unknown kinds, unknown
// fields, and constraint violations are all rejected. The returned value is
// exactly one of the union variants above.
func Decode(data []byte) (ServerMessage, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	switch probe.Kind {
	case KindPresence:
		return decodeAs[PresenceMessage](data)
	case KindEventCreated:
		return decodeAs[EventCreatedMessage](data)
	case KindTaskCreated:
		return decodeAs[TaskCreatedMessage](data)
	case KindTaskUpdated:
		return decodeAs[TaskUpdatedMessage](data)
	case KindChatMessage:
		return decodeAs[ChatMessageMessage](data)
	case KindError:
		return decodeAs[ErrorMessage](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, probe.Kind)
	}
}

func decodeAs[T ServerMessage](data []byte) (ServerMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg T
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode %s message: %w", msg.MessageKind(), err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeHello parses and validates a handshake envelope.
func DecodeHello(data []byte) (Presence, error) {
	var hello Hello
	if err := json.Unmarshal(data, &hello); err != nil {
		return Presence{}, fmt.Errorf("parse hello: %w", err)
	}
	if err := validate.Struct(hello); err != nil {
		return Presence{}, err
	}
	return hello.User, nil
}

// Issues flattens a decode/validation error into field-level issues suitable
// for a structured rejection response.
func Issues(err error) []Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: "", Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "TypeName.Field.Sub"; drop the type prefix.
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		issues = append(issues, Issue{
			Path:    path,
			Message: fmt.Sprintf("failed constraint %q", fe.Tag()),
		})
	}
	return issues
}

// Issue is one field-level validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
