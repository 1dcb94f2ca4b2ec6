package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/sqlengine/internal/adapters"
)

const savepointPrefix = "tablestore_sp_"

type txKey struct {
	store *Store
}

// txFrame is one level of a (nested) transaction. Nested frames share the database transaction of the
// root frame and are backed by a savepoint.
type txFrame struct {
	tx         adapters.DBTx
	parent     *txFrame
	depth      int
	savepoint  string
	successful bool
	ended      bool
	startedAt  time.Time
	span       tablestore.SpanContext
}

func (f *txFrame) isRoot() bool {
	return f.parent == nil
}

// activeFrame returns the innermost transaction frame of ctx which was not ended yet.
func (s *Store) activeFrame(ctx context.Context) *txFrame {
	frame, _ := ctx.Value(txKey{store: s}).(*txFrame)
	for frame != nil && frame.ended {
		frame = frame.parent
	}

	return frame
}

// BeginTransaction starts a transaction, or a savepoint if ctx already carries an active one.
// The returned context must be passed to all statements of the transaction and to EndTransaction.
func (s *Store) BeginTransaction(ctx context.Context) (context.Context, error) {
	parent := s.activeFrame(ctx)
	if parent == nil {
		return s.beginRootTransaction(ctx)
	}

	frame := &txFrame{
		tx:        parent.tx,
		parent:    parent,
		depth:     parent.depth + 1,
		savepoint: fmt.Sprintf("%s%d", savepointPrefix, parent.depth+1),
		startedAt: time.Now(),
	}

	if _, err := s.executeStatement(ctx, logActionBegin, "SAVEPOINT "+frame.savepoint, nil); err != nil {
		return ctx, errors.Join(tablestore.ErrBeginTransactionFailed, err)
	}

	s.logDebug(ctx, logMsgTransactionBegun, logAttrSavepoint, frame.savepoint)

	return context.WithValue(ctx, txKey{store: s}, frame), nil
}

func (s *Store) beginRootTransaction(ctx context.Context) (context.Context, error) {
	spanCtx, span := s.startTraceSpan(ctx, spanNameTransaction, map[string]string{
		spanAttrOperation: logActionBegin,
	})

	tx, err := s.db.Begin(spanCtx)
	if err != nil {
		s.logError(ctx, logMsgTransactionFailed, err)
		s.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorTypeOf(err)})

		return ctx, errors.Join(tablestore.ErrBeginTransactionFailed, s.classifyAndRecord(ctx, logActionBegin, err))
	}

	frame := &txFrame{
		tx:        tx,
		depth:     1,
		startedAt: time.Now(),
		span:      span,
	}

	s.logDebug(ctx, logMsgTransactionBegun)

	return context.WithValue(spanCtx, txKey{store: s}, frame), nil
}

// SetTransactionSuccessful marks the transaction of ctx to be committed by EndTransaction.
func (s *Store) SetTransactionSuccessful(ctx context.Context) error {
	frame, ok := ctx.Value(txKey{store: s}).(*txFrame)
	if !ok || frame.ended {
		return tablestore.ErrTransactionNotActive
	}

	frame.successful = true

	return nil
}

// EndTransaction commits the transaction of ctx if it was marked successful and rolls it back otherwise.
// Ending an already ended transaction is a no-op.
func (s *Store) EndTransaction(ctx context.Context) error {
	frame, ok := ctx.Value(txKey{store: s}).(*txFrame)
	if !ok {
		return tablestore.ErrTransactionNotActive
	}

	if frame.ended {
		return nil
	}

	frame.ended = true

	if frame.isRoot() {
		return s.endRootTransaction(ctx, frame)
	}

	return s.endSavepoint(ctx, frame)
}

func (s *Store) endRootTransaction(ctx context.Context, frame *txFrame) error {
	var (
		err    error
		action = logActionRollback
	)

	if frame.successful {
		action = logActionCommit
		if commitErr := frame.tx.Commit(ctx); commitErr != nil {
			err = errors.Join(tablestore.ErrCommitTransactionFailed, s.classifyAndRecord(ctx, action, commitErr))
		}
	} else if rollbackErr := frame.tx.Rollback(ctx); rollbackErr != nil {
		err = errors.Join(tablestore.ErrRollbackTransactionFailed, rollbackErr)
	}

	duration := time.Since(frame.startedAt)
	status := statusSuccess

	if err != nil {
		status = statusError
		s.logError(ctx, logMsgTransactionFailed, err, logAttrDurationMS, toMilliseconds(duration))
		s.recordErrorMetricsContext(ctx, action, errorTypeOf(err))
	} else if frame.successful {
		s.logDebug(ctx, logMsgTransactionCommitted, logAttrDurationMS, toMilliseconds(duration))
	} else {
		s.logDebug(ctx, logMsgTransactionRolledBk, logAttrDurationMS, toMilliseconds(duration))
	}

	s.recordDurationMetricsContext(ctx, metricTransactionDuration, duration, action, status)
	s.finishTraceSpan(frame.span, status, map[string]string{spanAttrOutcome: action})

	return err
}

func (s *Store) endSavepoint(ctx context.Context, frame *txFrame) error {
	if frame.successful {
		if _, err := frame.tx.Exec(ctx, "RELEASE SAVEPOINT "+frame.savepoint); err != nil {
			s.logError(ctx, logMsgTransactionFailed, err, logAttrSavepoint, frame.savepoint)
			return errors.Join(tablestore.ErrCommitTransactionFailed, s.classifyAndRecord(ctx, logActionCommit, err))
		}

		s.logDebug(ctx, logMsgTransactionCommitted, logAttrSavepoint, frame.savepoint)

		return nil
	}

	_, rollbackErr := frame.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+frame.savepoint)
	_, releaseErr := frame.tx.Exec(ctx, "RELEASE SAVEPOINT "+frame.savepoint)

	if err := errors.Join(rollbackErr, releaseErr); err != nil {
		s.logError(ctx, logMsgTransactionFailed, err, logAttrSavepoint, frame.savepoint)
		return errors.Join(tablestore.ErrRollbackTransactionFailed, err)
	}

	s.logDebug(ctx, logMsgTransactionRolledBk, logAttrSavepoint, frame.savepoint)

	return nil
}
