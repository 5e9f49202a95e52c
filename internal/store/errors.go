package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrReconnectUnsupported is returned by Reconnect when the pool was built
// without an opener.
var ErrReconnectUnsupported = errors.New("store: reconnect not supported")

// TransientError marks a failure caused by the connection to the database
// rather than by the operation itself. Retrying it may succeed.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient reports true; it is the marker checked by IsTransient.
func (e *TransientError) Transient() bool { return true }

type transient interface {
	Transient() bool
}

// IsTransient reports whether any error in err's chain carries the transient
// marker.
func IsTransient(err error) bool {
	var t transient
	return errors.As(err, &t) && t.Transient()
}

// Classify wraps connection-level failures in *TransientError and returns
// every other error unchanged.
func Classify(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	if isConnectionFailure(err) {
		return &TransientError{Err: err}
	}
	return err
}

// Postgres SQLSTATE codes outside class 08 that mean the server went away.
var shutdownCodes = map[string]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

func isConnectionFailure(err error) bool {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || shutdownCodes[string(pqErr.Code)]
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || shutdownCodes[pgErr.Code]
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
