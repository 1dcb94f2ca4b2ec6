package tablestore

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrEmptyTableName          = errors.New("empty table name supplied")
	ErrEmptyStatement          = errors.New("empty sql statement supplied")
	ErrEmptyChanges            = errors.New("changes must affect at least one table or tag")
	ErrInvalidRequest          = errors.New("invalid request: please specify a query or a raw query")
	ErrMissingTypeMapping      = errors.New("missing type mapping")
	ErrStoreOperationFailed    = errors.New("store operation failed")
	ErrNilStorage              = errors.New("storage must not be nil")
	ErrNilStore                = errors.New("store must not be nil")
	ErrNilDatabaseConnection   = errors.New("database connection must not be nil")
	ErrNilResolver             = errors.New("resolver must not be nil")
	ErrNilMapper               = errors.New("mapping function must not be nil")
	ErrNilInterceptor          = errors.New("interceptor must not be nil")
	ErrStoreClosed             = errors.New("store is closed")
	ErrTransactionNotActive    = errors.New("no active transaction in context")
	ErrTransactionConflict     = errors.New("transaction conflict, the operation may be retried")
	ErrTypeMappingsFrozen      = errors.New("type mappings are frozen once the store is built")
	ErrDuplicateTypeMapping    = errors.New("type mapping already registered")
	ErrInvalidWorkerLimit      = errors.New("worker limit must be positive")
	ErrUnexpectedChainResult   = errors.New("interceptor chain returned an unexpected result type")
	ErrNoColumnsToWrite        = errors.New("row has no columns to write")
	ErrUnsupportedConflictAlgo = errors.New("unsupported conflict algorithm")
	ErrMissingKeyColumns       = errors.New("row put resolver needs at least one key column present in the row")
)

var (
	ErrBuildingQueryFailed       = errors.New("building the sql query failed")
	ErrQueryingFailed            = errors.New("querying the database failed")
	ErrExecutingStatementFailed  = errors.New("executing the sql statement failed")
	ErrScanningRowFailed         = errors.New("scanning the database row failed")
	ErrGettingRowsAffectedFailed = errors.New("getting the affected rows failed")
	ErrGettingInsertIDFailed     = errors.New("getting the id of the inserted row failed")
	ErrBeginTransactionFailed    = errors.New("beginning the transaction failed")
	ErrCommitTransactionFailed   = errors.New("committing the transaction failed")
	ErrRollbackTransactionFailed = errors.New("rolling back the transaction failed")
	ErrMissingConflictTarget     = errors.New("conflict algorithm needs the conflict columns of the insert query")
	ErrUnsupportedDialect        = errors.New("unsupported sql dialect")
)

// NoRowID is the row id reported by an insert that did not write a row, e.g. on an ignored conflict.
const NoRowID int64 = -1

// StoreOperationError wraps every failure surfaced by an executed operation.
// errors.Is matches both ErrStoreOperationFailed and the original cause.
type StoreOperationError struct {
	Operation OperationKind
	Request   string
	Cause     error
}

func (e *StoreOperationError) Error() string {
	return fmt.Sprintf("%s: %s for request [%s]: %v", ErrStoreOperationFailed, e.Operation, e.Request, e.Cause)
}

func (e *StoreOperationError) Unwrap() []error {
	return []error{ErrStoreOperationFailed, e.Cause}
}

// MissingTypeMappingError names the type for which no resolver could be found.
type MissingTypeMappingError struct {
	Type     reflect.Type
	Resolver string
}

func (e *MissingTypeMappingError) Error() string {
	typeName := "<nil>"
	if e.Type != nil {
		typeName = e.Type.String()
	}

	if e.Resolver != "" {
		return fmt.Sprintf("%s: type mapping for %s has no %s resolver", ErrMissingTypeMapping, typeName, e.Resolver)
	}

	return fmt.Sprintf(
		"%s: no type mapping registered for %s, please register one or supply an explicit resolver",
		ErrMissingTypeMapping,
		typeName,
	)
}

func (e *MissingTypeMappingError) Is(target error) bool {
	return target == ErrMissingTypeMapping
}
