// Package sink streams ledger and task events into the persisted audit
// store. Persistence is eventually consistent with the in-memory state: the
// authoritative balances never wait on the database.
package sink

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/entropy-labs/rngpool/pkg/eventBus/eventBusTypes"
	"github.com/entropy-labs/rngpool/pkg/ledger"
	"github.com/entropy-labs/rngpool/pkg/storage"
	"github.com/entropy-labs/rngpool/pkg/tasks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StorageSink struct {
	logger   *zap.Logger
	store    storage.PoolStore
	bus      eventBusTypes.IEventBus
	consumer *eventBusTypes.Consumer
	done     chan struct{}
}

func NewStorageSink(store storage.PoolStore, bus eventBusTypes.IEventBus, l *zap.Logger) *StorageSink {
	return &StorageSink{
		logger: l,
		store:  store,
		bus:    bus,
		done:   make(chan struct{}),
	}
}

// Start subscribes to the event bus and consumes until Close or context
// cancellation.
func (s *StorageSink) Start(ctx context.Context) {
	s.consumer = &eventBusTypes.Consumer{
		Id:      eventBusTypes.ConsumerId(uuid.New().String()),
		Context: ctx,
		Channel: make(chan *eventBusTypes.Event, 100),
	}
	s.bus.Subscribe(s.consumer)

	go func() {
		for {
			select {
			case event := <-s.consumer.Channel:
				s.handleEvent(event)
			case <-s.done:
				s.bus.Unsubscribe(s.consumer)
				return
			case <-ctx.Done():
				s.bus.Unsubscribe(s.consumer)
				return
			}
		}
	}()
}

func (s *StorageSink) Close() {
	close(s.done)
}

func (s *StorageSink) handleEvent(event *eventBusTypes.Event) {
	switch data := event.Data.(type) {
	case *ledger.StateDelta:
		s.persistDelta(data)
	case *tasks.Task:
		s.persistTask(data)
	case *tasks.Result:
		s.persistResult(data)
	default:
		s.logger.Sugar().Debugw("Ignoring event with unknown payload",
			zap.String("event", event.Name.String()),
		)
	}
}

func (s *StorageSink) persistDelta(delta *ledger.StateDelta) {
	now := time.Now().UTC()
	for _, op := range delta.Operators {
		record := &storage.OperatorRecord{
			Address:             op.Address,
			SelfStake:           op.SelfStake.String(),
			TotalStake:          op.TotalStake.String(),
			IsActive:            op.IsActive,
			Status:              string(op.Status),
			TaskCount:           op.TaskCount,
			SuccessfulTaskCount: op.SuccessfulTaskCount,
			SlashCount:          op.SlashCount,
			TotalSlashedAmount:  op.TotalSlashedAmount.String(),
			RegistrationHeight:  op.RegistrationHeight,
			LastActivityHeight:  op.LastActivityHeight,
			UpdatedAt:           now,
		}
		if err := s.store.UpsertOperator(record); err != nil {
			s.logger.Sugar().Errorw("Failed to persist operator",
				zap.String("operator", op.Address),
				zap.Error(err),
			)
		}
	}
	for _, d := range delta.Delegators {
		record := &storage.DelegatorRecord{
			Operator:     d.Operator,
			Address:      d.Address,
			StakedAmount: d.StakedAmount.String(),
			Shares:       d.Shares.String(),
			IsActive:     d.IsActive,
			UpdatedAt:    now,
		}
		if err := s.store.UpsertDelegator(record); err != nil {
			s.logger.Sugar().Errorw("Failed to persist delegator",
				zap.String("operator", d.Operator),
				zap.String("delegator", d.Address),
				zap.Error(err),
			)
		}
	}
	if se := delta.SlashingEvent; se != nil {
		record := &storage.SlashingEventRecord{
			EventId:          se.Id,
			Operator:         se.Operator,
			Amount:           se.Amount.String(),
			OperatorPortion:  se.OperatorPortion.String(),
			DelegatorPortion: se.DelegatorPortion.String(),
			DeductedAmount:   se.DeductedAmount.String(),
			Reason:           se.Reason,
			Slasher:          se.Slasher,
			EventTime:        se.Timestamp,
			Height:           se.Height,
			Executed:         se.Executed,
		}
		if err := s.store.InsertSlashingEvent(record); err != nil {
			s.logger.Sugar().Errorw("Failed to persist slashing event",
				zap.Uint64("eventId", se.Id),
				zap.Error(err),
			)
		}
	}
	if rd := delta.Distribution; rd != nil {
		record := &storage.RewardDistributionRecord{
			DistributionId:   rd.Id,
			TotalRewards:     rd.TotalRewards.String(),
			OperatorRewards:  rd.OperatorRewards.String(),
			DelegatorRewards: rd.DelegatorRewards.String(),
			Height:           rd.Height,
			EventTime:        rd.Timestamp,
		}
		shares := make([]*storage.RewardShareRecord, 0, len(rd.Shares))
		for account, amount := range rd.Shares {
			shares = append(shares, &storage.RewardShareRecord{
				DistributionId: rd.Id,
				Account:        account,
				Amount:         amount.String(),
			})
		}
		if err := s.store.InsertRewardDistribution(record, shares); err != nil {
			s.logger.Sugar().Errorw("Failed to persist reward distribution",
				zap.Uint64("distributionId", rd.Id),
				zap.Error(err),
			)
		}
	}
}

func (s *StorageSink) persistTask(task *tasks.Task) {
	record := &storage.TaskRecord{
		TaskId:          task.TaskId,
		Requester:       task.Requester,
		MinValue:        task.MinValue.String(),
		MaxValue:        task.MaxValue.String(),
		Count:           task.Count,
		Fee:             task.Fee.String(),
		Seed:            task.Seed,
		CallbackLocator: task.CallbackLocator,
		Status:          string(task.Status),
		CreatedAt:       task.CreatedAt,
		CreatedAtHeight: task.CreatedAtHeight,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := s.store.UpsertTask(record); err != nil {
		s.logger.Sugar().Errorw("Failed to persist task",
			zap.Uint64("taskId", task.TaskId),
			zap.Error(err),
		)
	}
}

func (s *StorageSink) persistResult(result *tasks.Result) {
	values := make([]string, len(result.Values))
	for i, v := range result.Values {
		values[i] = v.String()
	}
	valuesJson, err := json.Marshal(values)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to encode result values",
			zap.Uint64("taskId", result.TaskId),
			zap.Error(err),
		)
		return
	}
	attestersJson, err := json.Marshal(result.Attesters)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to encode result attesters",
			zap.Uint64("taskId", result.TaskId),
			zap.Error(err),
		)
		return
	}

	record := &storage.TaskResultRecord{
		TaskId:              result.TaskId,
		Operator:            result.Operator,
		Values:              string(valuesJson),
		AggregatedSignature: hex.EncodeToString(result.AggregatedSignature),
		Attesters:           string(attestersJson),
		EventTime:           result.Timestamp,
		Verified:            result.Verified,
	}
	if err := s.store.InsertTaskResult(record); err != nil {
		s.logger.Sugar().Errorw("Failed to persist task result",
			zap.Uint64("taskId", result.TaskId),
			zap.Error(err),
		)
	}
}
