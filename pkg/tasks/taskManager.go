package tasks

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/types/numbers"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/entropy-labs/rngpool/pkg/eventBus/eventBusTypes"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OperatorRegistry is the slice of the stake ledger the task lifecycle needs:
// eligibility checks on submitters and attesters, and activity bookkeeping
// after a fulfillment.
type OperatorRegistry interface {
	IsActiveOperator(operatorId string) bool
	RecordActivity(operatorId string, successful bool) error
}

type TaskManager struct {
	mu     sync.RWMutex
	logger *zap.Logger
	params config.PoolConfig
	clock  clock.IClock
	height *clock.Height

	registry   OperatorRegistry
	collateral collateral.ICollateralClient
	bus        eventBusTypes.IEventBus

	authorizedRequesters map[string]bool
	tasks                []*Task
	results              map[uint64]*Result

	// Creation rate limiting, per wall-clock second.
	windowSecond    int64
	createdInWindow int
}

func NewTaskManager(
	cfg *config.PoolConfig,
	registry OperatorRegistry,
	cc collateral.ICollateralClient,
	clk clock.IClock,
	height *clock.Height,
	bus eventBusTypes.IEventBus,
	l *zap.Logger,
) *TaskManager {
	return &TaskManager{
		logger:               l,
		params:               clonePoolConfig(cfg),
		clock:                clk,
		height:               height,
		registry:             registry,
		collateral:           cc,
		bus:                  bus,
		authorizedRequesters: make(map[string]bool),
		tasks:                make([]*Task, 0),
		results:              make(map[uint64]*Result),
	}
}

func clonePoolConfig(cfg *config.PoolConfig) config.PoolConfig {
	out := *cfg
	out.MinOperatorStake = numbers.Clone(cfg.MinOperatorStake)
	out.MinDelegationAmount = numbers.Clone(cfg.MinDelegationAmount)
	out.SlashAmount = numbers.Clone(cfg.SlashAmount)
	out.TaskFee = numbers.Clone(cfg.TaskFee)
	return out
}

// SetParams replaces the task parameters for subsequent operations.
func (tm *TaskManager) SetParams(cfg *config.PoolConfig) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.params = clonePoolConfig(cfg)
}

func (tm *TaskManager) AuthorizeRequester(requester string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.authorizedRequesters[strings.ToLower(requester)] = true
}

func (tm *TaskManager) RevokeRequester(requester string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.authorizedRequesters, strings.ToLower(requester))
}

func (tm *TaskManager) IsAuthorizedRequester(requester string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.authorizedRequesters[strings.ToLower(requester)]
}

// CreateTask opens a randomness request for count values in [minValue,
// maxValue]. The requester pays fee up front; the whole offered fee is
// collected and is not returned if the task later times out.
func (tm *TaskManager) CreateTask(
	ctx context.Context,
	requester string,
	minValue *big.Int,
	maxValue *big.Int,
	count uint32,
	callbackLocator string,
	fee *big.Int,
) (*Task, error) {
	requester = strings.ToLower(requester)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.authorizedRequesters[requester] {
		return nil, errors.Wrapf(ErrUnauthorized, "requester %s", requester)
	}
	if fee == nil || fee.Sign() < 0 || fee.Cmp(tm.params.TaskFee) < 0 {
		return nil, errors.Wrapf(ErrInsufficientFee, "requester %s offered %s, fee is %s",
			requester, fee.String(), tm.params.TaskFee.String())
	}
	if minValue == nil || maxValue == nil || minValue.Cmp(maxValue) >= 0 {
		return nil, errors.Wrap(ErrInvalidRange, "minValue must be below maxValue")
	}
	if count == 0 || count > MaxValueCount {
		return nil, errors.Wrapf(ErrInvalidCount, "count must be in 1..%d, got %d", MaxValueCount, count)
	}

	now := tm.clock.Now()
	if tm.params.MaxTasksPerBlock > 0 {
		second := now.Unix()
		if second != tm.windowSecond {
			tm.windowSecond = second
			tm.createdInWindow = 0
		}
		if tm.createdInWindow >= tm.params.MaxTasksPerBlock {
			return nil, errors.Wrapf(ErrTooManyTasks, "limit %d per block", tm.params.MaxTasksPerBlock)
		}
	}

	if fee.Sign() > 0 {
		if err := tm.collateral.TransferFrom(ctx, requester, tm.params.Address, fee); err != nil {
			return nil, errors.Wrapf(err, "failed to collect fee from %s", requester)
		}
	}

	height := tm.height.Advance()
	taskId := uint64(len(tm.tasks))
	task := &Task{
		TaskId:          taskId,
		Requester:       requester,
		MinValue:        numbers.Clone(minValue),
		MaxValue:        numbers.Clone(maxValue),
		Count:           count,
		Fee:             numbers.Clone(fee),
		Seed:            deriveSeed(now.UnixNano(), requester, taskId),
		CallbackLocator: callbackLocator,
		Status:          TaskStatus_Pending,
		CreatedAt:       now,
		CreatedAtHeight: height,
	}
	tm.tasks = append(tm.tasks, task)
	tm.createdInWindow++

	tm.logger.Sugar().Infow("Created task",
		zap.Uint64("taskId", taskId),
		zap.String("requester", requester),
		zap.String("minValue", minValue.String()),
		zap.String("maxValue", maxValue.String()),
		zap.Uint32("count", count),
	)
	tm.publish(eventBusTypes.Event_TaskCreated, task.clone())
	return task.clone(), nil
}

// deriveSeed mixes the creation time, the requester and the task id into a
// keccak256 digest, hex encoded without a prefix.
func deriveSeed(unixNano int64, requester string, taskId uint64) string {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(unixNano))
	binary.BigEndian.PutUint64(buf[8:16], taskId)
	digest := crypto.Keccak256(buf, []byte(requester))
	return fmt.Sprintf("%x", digest)
}

// expired reports whether the task's fulfillment window has closed. A zero
// timeout means tasks never expire.
func (tm *TaskManager) expired(task *Task) bool {
	if tm.params.TaskTimeout <= 0 {
		return false
	}
	return tm.clock.Now().After(task.CreatedAt.Add(tm.params.TaskTimeout))
}

// SubmitResult fulfills a pending task. The caller and every attester must be
// active operators, the value count must match the request and every value
// must fall inside the requested range. A submission against a task past its
// timeout is rejected; the task stays pending until an admin reaps it.
func (tm *TaskManager) SubmitResult(
	ctx context.Context,
	caller string,
	taskId uint64,
	values []*big.Int,
	aggregatedSignature []byte,
	attesters []string,
) (*Result, error) {
	caller = strings.ToLower(caller)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if taskId >= uint64(len(tm.tasks)) {
		return nil, errors.Wrapf(ErrUnknownTask, "task %d", taskId)
	}
	task := tm.tasks[taskId]
	if !tm.registry.IsActiveOperator(caller) {
		return nil, errors.Wrapf(ErrCallerNotActiveOperator, "caller %s", caller)
	}
	if task.Status != TaskStatus_Pending {
		return nil, errors.Wrapf(ErrTaskNotPending, "task %d is %s", taskId, task.Status)
	}
	if tm.expired(task) {
		return nil, errors.Wrapf(ErrTaskExpired, "task %d", taskId)
	}
	if uint32(len(values)) != task.Count {
		return nil, errors.Wrapf(ErrResultCountMismatch, "got %d values, task wants %d", len(values), task.Count)
	}
	for i, v := range values {
		if v == nil || v.Cmp(task.MinValue) < 0 || v.Cmp(task.MaxValue) > 0 {
			return nil, errors.Wrapf(ErrValueOutOfRange, "value %d of task %d", i, taskId)
		}
	}
	if len(attesters) == 0 {
		return nil, errors.Wrapf(ErrInvalidAttester, "task %d has no attesters", taskId)
	}
	for _, a := range attesters {
		if !tm.registry.IsActiveOperator(a) {
			return nil, errors.Wrapf(ErrInvalidAttester, "attester %s", a)
		}
	}

	tm.height.Advance()
	normalized := make([]string, len(attesters))
	for i, a := range attesters {
		normalized[i] = strings.ToLower(a)
	}
	result := &Result{
		TaskId:              taskId,
		Operator:            caller,
		Values:              values,
		AggregatedSignature: aggregatedSignature,
		Attesters:           normalized,
		Timestamp:           tm.clock.Now(),
		Verified:            true,
	}
	result = result.clone()
	tm.results[taskId] = result
	task.Status = TaskStatus_Completed

	if err := tm.registry.RecordActivity(caller, true); err != nil {
		tm.logger.Sugar().Errorw("Failed to record fulfillment activity",
			zap.String("operator", caller),
			zap.Error(err),
		)
	}

	tm.logger.Sugar().Infow("Completed task",
		zap.Uint64("taskId", taskId),
		zap.String("operator", caller),
		zap.Int("attesters", len(normalized)),
	)
	tm.publish(eventBusTypes.Event_ResultSubmitted, result.clone())
	tm.publish(eventBusTypes.Event_TaskCompleted, task.clone())
	return result.clone(), nil
}

// VerifyResult checks a claimed fulfillment against the stored record.
func (tm *TaskManager) VerifyResult(taskId uint64, values []*big.Int, aggregatedSignature []byte) (bool, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if taskId >= uint64(len(tm.tasks)) {
		return false, errors.Wrapf(ErrUnknownTask, "task %d", taskId)
	}
	result, ok := tm.results[taskId]
	if !ok {
		return false, errors.Wrapf(ErrNoResult, "task %d", taskId)
	}
	if len(values) != len(result.Values) {
		return false, nil
	}
	for i, v := range values {
		if v == nil || v.Cmp(result.Values[i]) != 0 {
			return false, nil
		}
	}
	if !bytes.Equal(aggregatedSignature, result.AggregatedSignature) {
		return false, nil
	}
	return true, nil
}

// ReapExpired fails every pending task past its timeout and returns the ids
// it reaped. Fees are not refunded.
func (tm *TaskManager) ReapExpired(ctx context.Context) []uint64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	reaped := make([]uint64, 0)
	for _, task := range tm.tasks {
		if task.Status != TaskStatus_Pending || !tm.expired(task) {
			continue
		}
		tm.failTask(task)
		reaped = append(reaped, task.TaskId)
	}
	if len(reaped) > 0 {
		tm.logger.Sugar().Infow("Reaped expired tasks", zap.Int("count", len(reaped)))
	}
	return reaped
}

// ReapTask fails a single pending task whose deadline has elapsed.
func (tm *TaskManager) ReapTask(ctx context.Context, taskId uint64) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if taskId >= uint64(len(tm.tasks)) {
		return errors.Wrapf(ErrUnknownTask, "taskId %d", taskId)
	}
	task := tm.tasks[taskId]
	if task.Status != TaskStatus_Pending {
		return errors.Wrapf(ErrTaskNotPending, "taskId %d status %s", taskId, task.Status)
	}
	if !tm.expired(task) {
		return errors.Wrapf(ErrTaskNotExpired, "taskId %d", taskId)
	}
	tm.failTask(task)
	return nil
}

// failTask marks a timed-out task failed. Callers hold the lock.
func (tm *TaskManager) failTask(task *Task) {
	tm.height.Advance()
	task.Status = TaskStatus_Failed
	tm.logger.Sugar().Infow("Task expired",
		zap.Uint64("taskId", task.TaskId),
		zap.String("requester", task.Requester),
	)
	tm.publish(eventBusTypes.Event_TaskReaped, task.clone())
}

func (tm *TaskManager) GetTask(taskId uint64) (*Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if taskId >= uint64(len(tm.tasks)) {
		return nil, errors.Wrapf(ErrUnknownTask, "task %d", taskId)
	}
	return tm.tasks[taskId].clone(), nil
}

func (tm *TaskManager) GetResult(taskId uint64) (*Result, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if taskId >= uint64(len(tm.tasks)) {
		return nil, errors.Wrapf(ErrUnknownTask, "task %d", taskId)
	}
	result, ok := tm.results[taskId]
	if !ok {
		return nil, errors.Wrapf(ErrNoResult, "task %d", taskId)
	}
	return result.clone(), nil
}

func (tm *TaskManager) PendingTaskCount() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	n := 0
	for _, task := range tm.tasks {
		if task.Status == TaskStatus_Pending {
			n++
		}
	}
	return n
}

func (tm *TaskManager) ListTasks() []*Task {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make([]*Task, 0, len(tm.tasks))
	for _, task := range tm.tasks {
		out = append(out, task.clone())
	}
	return out
}

func (tm *TaskManager) publish(name eventBusTypes.EventName, data any) {
	if tm.bus == nil {
		return
	}
	tm.bus.Publish(&eventBusTypes.Event{Name: name, Data: data})
}
