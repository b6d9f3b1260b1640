package ledgerQueue

import (
	"context"

	"go.uber.org/zap"
)

func NewMutationQueue(processor Processor, logger *zap.Logger) *MutationQueue {
	return &MutationQueue{
		logger:    logger,
		processor: processor,
		// allow the queue to buffer up to 100 messages
		queue: make(chan *MutationMessage, 100),
		done:  make(chan struct{}),
	}
}

// Enqueue adds a message to the queue and returns immediately.
func (mq *MutationQueue) Enqueue(payload *MutationMessage) {
	mq.logger.Sugar().Debugw("Enqueueing mutation", zap.String("type", string(payload.Type)))
	mq.queue <- payload
}

// EnqueueAndWait adds a message to the queue and blocks until the mutation is
// applied or the context is canceled.
func (mq *MutationQueue) EnqueueAndWait(ctx context.Context, mutationType MutationType, request any) (any, error) {
	responseChan := make(chan *MutationResponse, 1)

	mq.Enqueue(&MutationMessage{
		Type:         mutationType,
		Request:      request,
		ResponseChan: responseChan,
	})

	select {
	case response := <-responseChan:
		return response.Data, response.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Process runs the single worker loop until Close is called. Call it from
// exactly one goroutine.
func (mq *MutationQueue) Process(ctx context.Context) {
	mq.logger.Sugar().Infow("Starting mutation queue")
	for {
		select {
		case message := <-mq.queue:
			data, err := mq.processor(ctx, message)
			if err != nil {
				mq.logger.Sugar().Debugw("Mutation failed",
					zap.String("type", string(message.Type)),
					zap.Error(err),
				)
			}
			if message.ResponseChan != nil {
				message.ResponseChan <- &MutationResponse{Data: data, Error: err}
			}
		case <-mq.done:
			mq.logger.Sugar().Infow("Stopping mutation queue")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close signals the worker loop to stop. Pending messages are dropped.
func (mq *MutationQueue) Close() {
	close(mq.done)
}
