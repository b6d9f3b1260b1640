// Package coordinator is the top-level assembly of the pool: it owns the
// stake ledger, the task manager and the mutation queue, gates privileged
// operations behind the configured admin identity, and emits metrics for
// every applied mutation.
package coordinator

import (
	"context"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/metrics/metricsTypes"
	"github.com/entropy-labs/rngpool/internal/types/numbers"
	"github.com/entropy-labs/rngpool/pkg/ledger"
	"github.com/entropy-labs/rngpool/pkg/ledgerQueue"
	"github.com/entropy-labs/rngpool/pkg/tasks"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Coordinator struct {
	Logger       *zap.Logger
	GlobalConfig *config.Config
	Ledger       *ledger.Ledger
	Tasks        *tasks.TaskManager
	Queue        *ledgerQueue.MutationQueue

	metricsClient metricsTypes.IMetricsClient
	started       *atomic.Bool
}

func NewCoordinator(
	gCfg *config.Config,
	led *ledger.Ledger,
	tm *tasks.TaskManager,
	mc metricsTypes.IMetricsClient,
	l *zap.Logger,
) *Coordinator {
	c := &Coordinator{
		Logger:        l,
		GlobalConfig:  gCfg,
		Ledger:        led,
		Tasks:         tm,
		metricsClient: mc,
		started:       &atomic.Bool{},
	}
	c.Queue = ledgerQueue.NewMutationQueue(c.processMutation, l)
	return c
}

// Start launches the mutation worker. Safe to call once.
func (c *Coordinator) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.Logger.Sugar().Infow("Starting coordinator",
		zap.String("admin", c.GlobalConfig.PoolConfig.AdminAddress),
	)
	go c.Queue.Process(ctx)
}

func (c *Coordinator) Shutdown() {
	c.Logger.Sugar().Infow("Shutting down coordinator")
	c.Queue.Close()
	c.metricsClient.Flush()
}

func (c *Coordinator) isAdmin(caller string) bool {
	return strings.EqualFold(caller, c.GlobalConfig.PoolConfig.AdminAddress)
}

// processMutation is the queue worker body. It is the single writer for every
// state transition in the system.
func (c *Coordinator) processMutation(ctx context.Context, message *ledgerQueue.MutationMessage) (data any, err error) {
	start := time.Now()
	defer func() {
		hasError := "false"
		if err != nil {
			hasError = "true"
		}
		_ = c.metricsClient.Timing(metricsTypes.Metric_Timing_MutationDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "mutation", Value: string(message.Type)},
			{Name: "hasError", Value: hasError},
		})
		c.emitGauges()
	}()

	switch req := message.Request.(type) {
	case *RegisterOperatorRequest:
		err = c.Ledger.RegisterOperator(ctx, req.OperatorId, req.SelfStake)
		if err == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_OperatorRegistered, nil, 1)
		}
		return nil, err
	case *DeregisterOperatorRequest:
		err = c.Ledger.Deregister(ctx, req.OperatorId)
		if err == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_OperatorDeregistered, nil, 1)
		}
		return nil, err
	case *DelegateRequest:
		return nil, c.Ledger.Delegate(ctx, req.OperatorId, req.DelegatorId, req.Amount)
	case *UndelegateRequest:
		return nil, c.Ledger.Undelegate(ctx, req.OperatorId, req.DelegatorId, req.Amount)
	case *SlashRequest:
		event, slashErr := c.Ledger.Slash(ctx, req.OperatorId, req.Amount, req.Reason, req.Slasher)
		if slashErr == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_OperatorSlashed, []metricsTypes.MetricsLabel{
				{Name: "reason", Value: req.Reason},
			}, 1)
		}
		return event, slashErr
	case *DistributeRewardsRequest:
		record, distErr := c.Ledger.DistributeRewards(ctx, req.Amount, req.Distributor)
		if distErr == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_RewardsDistributed, nil, 1)
		}
		return record, distErr
	case *PauseOperatorRequest:
		return nil, c.Ledger.PauseOperator(req.OperatorId)
	case *UnpauseOperatorRequest:
		return nil, c.Ledger.UnpauseOperator(req.OperatorId)
	case *CreateTaskRequest:
		task, taskErr := c.Tasks.CreateTask(ctx, req.Requester, req.MinValue, req.MaxValue, req.Count, req.CallbackLocator, req.Fee)
		if taskErr == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_TaskCreated, nil, 1)
		} else {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_TaskRejected, []metricsTypes.MetricsLabel{
				{Name: "reason", Value: rejectionReason(taskErr)},
			}, 1)
		}
		return task, taskErr
	case *SubmitResultRequest:
		result, resErr := c.Tasks.SubmitResult(ctx, req.Caller, req.TaskId, req.Values, req.AggregatedSignature, req.Attesters)
		if resErr == nil {
			_ = c.metricsClient.Incr(metricsTypes.Metric_Incr_TaskCompleted, nil, 1)
		}
		return result, resErr
	case *ReapTaskRequest:
		return nil, c.Tasks.ReapTask(ctx, req.TaskId)
	case *ReapExpiredRequest:
		return c.Tasks.ReapExpired(ctx), nil
	default:
		return nil, errors.Errorf("unhandled mutation type %s", message.Type)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, tasks.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, tasks.ErrInsufficientFee):
		return "insufficientFee"
	case errors.Is(err, tasks.ErrInvalidRange):
		return "invalidRange"
	case errors.Is(err, tasks.ErrInvalidCount):
		return "invalidCount"
	case errors.Is(err, tasks.ErrTooManyTasks):
		return "rateLimited"
	default:
		return "other"
	}
}

func (c *Coordinator) emitGauges() {
	_ = c.metricsClient.Gauge(metricsTypes.Metric_Gauge_TotalStaked, numbers.StakeAsFloat(c.Ledger.TotalStaked()), nil)
	_ = c.metricsClient.Gauge(metricsTypes.Metric_Gauge_ActiveOperators, float64(c.Ledger.ActiveOperatorCount()), nil)
	_ = c.metricsClient.Gauge(metricsTypes.Metric_Gauge_PendingTasks, float64(c.Tasks.PendingTaskCount()), nil)
}

// ---- operator and delegator entry points ----

func (c *Coordinator) RegisterOperator(ctx context.Context, operatorId string, selfStake *big.Int) error {
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_RegisterOperator, &RegisterOperatorRequest{
		OperatorId: operatorId,
		SelfStake:  selfStake,
	})
	return err
}

func (c *Coordinator) DeregisterOperator(ctx context.Context, operatorId string) error {
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_DeregisterOperator, &DeregisterOperatorRequest{
		OperatorId: operatorId,
	})
	return err
}

func (c *Coordinator) Delegate(ctx context.Context, operatorId string, delegatorId string, amount *big.Int) error {
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_Delegate, &DelegateRequest{
		OperatorId:  operatorId,
		DelegatorId: delegatorId,
		Amount:      amount,
	})
	return err
}

func (c *Coordinator) Undelegate(ctx context.Context, operatorId string, delegatorId string, amount *big.Int) error {
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_Undelegate, &UndelegateRequest{
		OperatorId:  operatorId,
		DelegatorId: delegatorId,
		Amount:      amount,
	})
	return err
}

// ---- admin entry points ----

func (c *Coordinator) Slash(ctx context.Context, caller string, operatorId string, amount *big.Int, reason string) (*ledger.SlashingEvent, error) {
	if !c.isAdmin(caller) {
		return nil, errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	data, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_Slash, &SlashRequest{
		OperatorId: operatorId,
		Amount:     amount,
		Reason:     reason,
		Slasher:    caller,
	})
	if err != nil {
		return nil, err
	}
	return data.(*ledger.SlashingEvent), nil
}

func (c *Coordinator) DistributeRewards(ctx context.Context, distributor string, amount *big.Int) (*ledger.RewardDistribution, error) {
	data, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_DistributeRewards, &DistributeRewardsRequest{
		Amount:      amount,
		Distributor: distributor,
	})
	if err != nil {
		return nil, err
	}
	return data.(*ledger.RewardDistribution), nil
}

func (c *Coordinator) PauseOperator(ctx context.Context, caller string, operatorId string) error {
	if !c.isAdmin(caller) && !strings.EqualFold(caller, operatorId) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_PauseOperator, &PauseOperatorRequest{
		OperatorId: operatorId,
	})
	return err
}

func (c *Coordinator) UnpauseOperator(ctx context.Context, caller string, operatorId string) error {
	if !c.isAdmin(caller) && !strings.EqualFold(caller, operatorId) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_UnpauseOperator, &UnpauseOperatorRequest{
		OperatorId: operatorId,
	})
	return err
}

func (c *Coordinator) AuthorizeRequester(caller string, requester string) error {
	if !c.isAdmin(caller) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	c.Tasks.AuthorizeRequester(requester)
	return nil
}

func (c *Coordinator) RevokeRequester(caller string, requester string) error {
	if !c.isAdmin(caller) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	c.Tasks.RevokeRequester(requester)
	return nil
}

// UpdateParameters swaps the economic and task parameters. Existing balances
// are untouched; new minimums apply to subsequent operations only.
func (c *Coordinator) UpdateParameters(caller string, poolCfg *config.PoolConfig) error {
	if !c.isAdmin(caller) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	c.Ledger.SetParams(poolCfg)
	c.Tasks.SetParams(poolCfg)
	c.Logger.Sugar().Infow("Updated pool parameters",
		zap.String("minOperatorStake", poolCfg.MinOperatorStake.String()),
		zap.Uint64("commissionBps", poolCfg.CommissionBps),
	)
	return nil
}

// ---- task entry points ----

func (c *Coordinator) CreateTask(ctx context.Context, requester string, minValue, maxValue *big.Int, count uint32, callbackLocator string, fee *big.Int) (*tasks.Task, error) {
	data, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_CreateTask, &CreateTaskRequest{
		Requester:       requester,
		MinValue:        minValue,
		MaxValue:        maxValue,
		Count:           count,
		CallbackLocator: callbackLocator,
		Fee:             fee,
	})
	if err != nil {
		return nil, err
	}
	return data.(*tasks.Task), nil
}

func (c *Coordinator) SubmitResult(ctx context.Context, caller string, taskId uint64, values []*big.Int, aggregatedSignature []byte, attesters []string) (*tasks.Result, error) {
	data, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_SubmitResult, &SubmitResultRequest{
		Caller:              caller,
		TaskId:              taskId,
		Values:              values,
		AggregatedSignature: aggregatedSignature,
		Attesters:           attesters,
	})
	if err != nil {
		return nil, err
	}
	return data.(*tasks.Result), nil
}

// ReapTask is the per-task administrative reap: it fails a single pending
// task whose deadline has elapsed.
func (c *Coordinator) ReapTask(ctx context.Context, caller string, taskId uint64) error {
	if !c.isAdmin(caller) {
		return errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	_, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_ReapTask, &ReapTaskRequest{TaskId: taskId})
	return err
}

func (c *Coordinator) ReapExpiredTasks(ctx context.Context, caller string) ([]uint64, error) {
	if !c.isAdmin(caller) {
		return nil, errors.Wrapf(ErrNotAdmin, "caller %s", caller)
	}
	data, err := c.Queue.EnqueueAndWait(ctx, ledgerQueue.MutationType_ReapExpired, &ReapExpiredRequest{})
	if err != nil {
		return nil, err
	}
	return data.([]uint64), nil
}
