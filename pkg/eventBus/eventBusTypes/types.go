// Package eventBusTypes defines the types and interfaces used by the eventBus
// package. Payloads are carried as `any`; the emitting package owns the
// concrete type and consumers assert on the event name.
package eventBusTypes

import (
	"context"
	"sync"
)

// EventName is a string type that identifies different types of events.
type EventName string

func (en *EventName) String() string {
	return string(*en)
}

// Predefined event names used in the system.
var (
	// Ledger events. Payloads are the ledger package's record types.
	Event_OperatorRegistered   EventName = "operator_registered"
	Event_OperatorDeregistered EventName = "operator_deregistered"
	Event_OperatorPaused       EventName = "operator_paused"
	Event_OperatorUnpaused     EventName = "operator_unpaused"
	Event_StakeDelegated       EventName = "stake_delegated"
	Event_StakeUndelegated     EventName = "stake_undelegated"
	Event_OperatorSlashed      EventName = "operator_slashed"
	Event_OperatorActivity     EventName = "operator_activity"
	Event_RewardsDistributed   EventName = "rewards_distributed"

	// Task events. Payloads are the tasks package's record types.
	Event_TaskCreated     EventName = "task_created"
	Event_ResultSubmitted EventName = "result_submitted"
	Event_TaskCompleted   EventName = "task_completed"
	Event_TaskReaped      EventName = "task_reaped"
)

// Event represents a message that is published to the event bus.
type Event struct {
	// Name identifies the type of event
	Name EventName
	// Data contains the event payload, which can be of any type
	Data any
}

// ConsumerId is a string type that uniquely identifies an event consumer.
type ConsumerId string

// Consumer represents a subscriber to the event bus.
type Consumer struct {
	// Id uniquely identifies the consumer
	Id ConsumerId
	// Context can be used to signal cancellation
	Context context.Context
	// Channel receives events from the event bus
	Channel chan *Event
}

// ConsumerList is a thread-safe collection of consumers.
type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

// Add adds a consumer to the list in a thread-safe manner.
func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

// Remove removes a consumer from the list, identified by its ID.
func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns the current consumers in a thread-safe manner.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.consumers
}

// IEventBus defines the interface for an event bus.
type IEventBus interface {
	// Subscribe registers a consumer to receive events
	Subscribe(consumer *Consumer)
	// Unsubscribe removes a consumer from the event bus
	Unsubscribe(consumer *Consumer)
	// Publish sends an event to all subscribed consumers
	Publish(event *Event)
}
