//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

// IRegistry tracks live connections, the online set and per-group
// channel subscribers. One shared instance for the process lifetime.
type IRegistry interface {
	Connect(userID, connectionID string)
	Disconnect(connectionID string) string
	IsOnline(userID string) bool
	ConnectionFor(userID string) string
	OnlineUsers() []string
	JoinChannel(groupID, userID string)
	LeaveChannel(groupID, userID string)
	Subscribers(groupID string) []string
}

// ILiveTransport pushes payloads to connected clients. Push is best
// effort: callers never assume success and never retry.
type ILiveTransport interface {
	Unicast(connectionID, event string, payload any) error
	Broadcast(groupID, event string, payload any) error
	AddSubscriber(connectionID, groupID string)
	RemoveSubscriber(connectionID, groupID string)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
